package types

import "time"

// AccessPoint represents one wireless network observed during a scan
type AccessPoint struct {
	BSSID     string `json:"bssid"`
	SSID      string `json:"ssid,omitempty"`
	SignalPct *int   `json:"signal_pct,omitempty"`
}

// IPLocation represents the public-network location of a host as reported
// by an IP intelligence service. A nil *IPLocation means the lookup was
// unavailable (network error, timeout, malformed response).
type IPLocation struct {
	IP        string  `json:"ip"`
	City      string  `json:"city,omitempty"`
	Region    string  `json:"region,omitempty"`
	Country   string  `json:"country,omitempty"`
	ISP       string  `json:"isp,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// RadioSource identifies how a radio-based location fix was obtained
type RadioSource string

const (
	// SourceRemote means the remote positioning service produced the fix
	SourceRemote RadioSource = "remote"
	// SourceOffline means the fix came from the offline fallback table
	SourceOffline RadioSource = "offline"
	// SourceNone means no fix could be produced; a valid terminal state
	SourceNone RadioSource = "none"
)

// RadioLocation represents a radio-based location estimate. AccuracyM < 0
// marks an offline estimate with no meaningful accuracy figure.
type RadioLocation struct {
	Latitude  float64     `json:"latitude,omitempty"`
	Longitude float64     `json:"longitude,omitempty"`
	AccuracyM float64     `json:"accuracy_m,omitempty"`
	Source    RadioSource `json:"source"`
	Place     string      `json:"place,omitempty"`
	// Attempted is true when at least one access point was available to
	// try, regardless of whether any lookup succeeded.
	Attempted bool `json:"attempted"`
}

// Fix reports whether the estimate carries usable coordinates
func (r RadioLocation) Fix() bool {
	return r.Source != SourceNone
}

// Flag is a named anomaly signal raised by the inference engine
type Flag string

const (
	// FlagGeolocationFailed - access points were observed but neither the
	// positioning service nor the offline table produced a fix
	FlagGeolocationFailed Flag = "GEOLOCATION_FAILED"
	// FlagLocationMismatch - IP-based and radio-based countries disagree
	FlagLocationMismatch Flag = "LOCATION_MISMATCH"
	// FlagPossibleVPN - ISP/org string matches an anonymization token
	FlagPossibleVPN Flag = "POSSIBLE_VPN"
	// FlagVirtualMachine - hardware model matches a virtualization marker
	FlagVirtualMachine Flag = "VIRTUAL_MACHINE"
)

// Report is the assembled result of one reconnaissance run
type Report struct {
	Timestamp     time.Time     `json:"timestamp"`
	Target        string        `json:"target,omitempty"`
	IPLocation    *IPLocation   `json:"ip_location,omitempty"`
	AccessPoints  []AccessPoint `json:"access_points"`
	RadioLocation RadioLocation `json:"radio_location"`
	RadioCountry  string        `json:"radio_country,omitempty"`
	HardwareModel string        `json:"hardware_model,omitempty"`
	Flags         []Flag        `json:"flags"`
}

// HasFlag reports whether the verdict contains the given flag
func (r *Report) HasFlag(f Flag) bool {
	for _, have := range r.Flags {
		if have == f {
			return true
		}
	}
	return false
}

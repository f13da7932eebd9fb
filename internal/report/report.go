package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"georecon/internal/types"
)

// WriteText renders the report as human-readable key/value lines, an
// access point table and a bulleted flag list. Render-only output; no
// machine-readable contract is implied.
func WriteText(w io.Writer, r *types.Report) error {
	var b strings.Builder

	b.WriteString("Timestamp (UTC): " + r.Timestamp.Format("2006-01-02T15:04:05Z") + "\n")
	if r.Target != "" {
		b.WriteString("Target: " + r.Target + "\n")
	}

	writeIPSection(&b, r.IPLocation)
	writeRadioSection(&b, r)

	if r.HardwareModel != "" {
		b.WriteString("Hardware model: " + r.HardwareModel + "\n")
	} else {
		b.WriteString("Hardware model: unavailable\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if err := writeAccessPointTable(w, r.AccessPoints); err != nil {
		return err
	}

	return writeFlags(w, r.Flags)
}

func writeIPSection(b *strings.Builder, ip *types.IPLocation) {
	if ip == nil {
		b.WriteString("Public IP: unavailable\n")
		return
	}

	b.WriteString("Public IP: " + ip.IP + "\n")
	if ip.City != "" || ip.Region != "" || ip.Country != "" {
		b.WriteString(fmt.Sprintf("IP location: %s\n", joinNonEmpty(", ", ip.City, ip.Region, ip.Country)))
	}
	if ip.ISP != "" {
		b.WriteString("ISP/Org: " + ip.ISP + "\n")
	}
	if ip.Latitude != 0 || ip.Longitude != 0 {
		b.WriteString(fmt.Sprintf("IP coordinates: %.4f, %.4f\n", ip.Latitude, ip.Longitude))
	}
}

func writeRadioSection(b *strings.Builder, r *types.Report) {
	switch r.RadioLocation.Source {
	case types.SourceNone:
		b.WriteString("Radio location: no fix\n")
	case types.SourceOffline:
		b.WriteString(fmt.Sprintf("Radio location: %.4f, %.4f (offline estimate", r.RadioLocation.Latitude, r.RadioLocation.Longitude))
		if r.RadioLocation.Place != "" {
			b.WriteString(": " + r.RadioLocation.Place)
		}
		b.WriteString(")\n")
	default:
		b.WriteString(fmt.Sprintf("Radio location: %.4f, %.4f (accuracy %.0fm)\n",
			r.RadioLocation.Latitude, r.RadioLocation.Longitude, r.RadioLocation.AccuracyM))
	}

	if r.RadioCountry != "" {
		b.WriteString("Radio country: " + r.RadioCountry + "\n")
	}
}

func writeAccessPointTable(w io.Writer, aps []types.AccessPoint) error {
	if len(aps) == 0 {
		_, err := io.WriteString(w, "No access points observed\n")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BSSID\tSSID\tSIGNAL")
	for _, ap := range aps {
		signal := "-"
		if ap.SignalPct != nil {
			signal = strconv.Itoa(*ap.SignalPct) + "%"
		}
		ssid := ap.SSID
		if ssid == "" {
			ssid = "<hidden>"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ap.BSSID, ssid, signal)
	}
	return tw.Flush()
}

func writeFlags(w io.Writer, flags []types.Flag) error {
	if len(flags) == 0 {
		_, err := io.WriteString(w, "No anomalies detected\n")
		return err
	}

	var b strings.Builder
	b.WriteString("Anomalies:\n")
	for _, f := range flags {
		b.WriteString("  * " + describe(f) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func describe(f types.Flag) string {
	switch f {
	case types.FlagGeolocationFailed:
		return "radio geolocation failed (access points observed, no fix obtained)"
	case types.FlagLocationMismatch:
		return "IP-based and radio-based locations disagree"
	case types.FlagPossibleVPN:
		return "ISP/org suggests VPN, proxy or cloud egress"
	case types.FlagVirtualMachine:
		return "hardware model suggests a virtual machine"
	default:
		return string(f)
	}
}

// WriteJSON renders the report as indented JSON
func WriteJSON(w io.Writer, r *types.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

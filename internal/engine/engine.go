// Package engine implements the spoofing inference rules. The engine is a
// pure function of its inputs: all network I/O (including the reverse
// geocode used for the mismatch rule) happens in the pipeline before
// evaluation, so verdicts are deterministic and trivially testable.
package engine

import (
	"strings"

	"georecon/internal/types"
)

// Engine applies the anomaly rules to collected signals
type Engine struct {
	vpnTokens []string
	vmMarkers []string
}

// New creates an engine with the given detection token lists. The lists
// are injected rather than hard-coded so operators can extend them;
// matching is case-insensitive substring.
func New(vpnTokens, vmMarkers []string) *Engine {
	return &Engine{
		vpnTokens: lowerAll(vpnTokens),
		vmMarkers: lowerAll(vmMarkers),
	}
}

// Evaluate combines the collected signals into a verdict. radioCountry is
// the reverse-geocoded country of the radio fix, empty when the geocode
// was skipped or failed.
//
// Rules:
//   - geolocation failed: access points were observed but no fix was
//     produced by the remote service or the offline table. A successful
//     offline fallback suppresses this flag and feeds the mismatch rule
//     instead.
//   - location mismatch: only checked when a radio fix exists and both
//     countries are known; flagged when they differ. Mutually exclusive
//     with the geolocation-failed flag by construction.
//   - possible VPN: the ISP/org string contains an anonymization token.
//   - virtual machine: the hardware model contains a virtualization marker.
//
// Flags are emitted in a fixed order so identical inputs always produce
// identical verdicts.
func (e *Engine) Evaluate(ip *types.IPLocation, radio types.RadioLocation, radioCountry, hardwareModel string) []types.Flag {
	// Never nil, so an empty verdict serializes as [] rather than null.
	flags := make([]types.Flag, 0, 4)

	if radio.Source == types.SourceNone && radio.Attempted {
		flags = append(flags, types.FlagGeolocationFailed)
	} else if radio.Fix() && e.countriesDiffer(ip, radioCountry) {
		flags = append(flags, types.FlagLocationMismatch)
	}

	if ip != nil && containsAny(ip.ISP, e.vpnTokens) {
		flags = append(flags, types.FlagPossibleVPN)
	}

	if containsAny(hardwareModel, e.vmMarkers) {
		flags = append(flags, types.FlagVirtualMachine)
	}

	return flags
}

func (e *Engine) countriesDiffer(ip *types.IPLocation, radioCountry string) bool {
	if ip == nil || ip.Country == "" || radioCountry == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(ip.Country), strings.TrimSpace(radioCountry))
}

func containsAny(s string, tokens []string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, token := range tokens {
		if token != "" && strings.Contains(s, token) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

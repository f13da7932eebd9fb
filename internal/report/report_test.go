package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"georecon/internal/types"
)

func sampleReport() *types.Report {
	signal := 80
	return &types.Report{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		IPLocation: &types.IPLocation{
			IP:      "1.2.3.4",
			City:    "New Delhi",
			Country: "India",
			ISP:     "Bharti Airtel",
		},
		AccessPoints: []types.AccessPoint{
			{BSSID: "68:34:21:cb:c2:01", SSID: "HomeNet", SignalPct: &signal},
			{BSSID: "50:c7:bf:2a:91:aa"},
		},
		RadioLocation: types.RadioLocation{
			Latitude:  28.6139,
			Longitude: 77.2090,
			AccuracyM: 30,
			Source:    types.SourceRemote,
			Attempted: true,
		},
		RadioCountry:  "India",
		HardwareModel: "ThinkPad X1",
		Flags:         []types.Flag{types.FlagPossibleVPN},
	}
}

func TestWriteText(t *testing.T) {
	var b strings.Builder
	if err := WriteText(&b, sampleReport()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"Public IP: 1.2.3.4",
		"ISP/Org: Bharti Airtel",
		"Radio location: 28.6139, 77.2090",
		"68:34:21:cb:c2:01",
		"HomeNet",
		"80%",
		"<hidden>",
		"Anomalies:",
		"VPN, proxy or cloud egress",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteText_DegradedStates(t *testing.T) {
	rep := &types.Report{
		Timestamp:     time.Now().UTC(),
		RadioLocation: types.RadioLocation{Source: types.SourceNone},
	}

	var b strings.Builder
	if err := WriteText(&b, rep); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"Public IP: unavailable",
		"Radio location: no fix",
		"Hardware model: unavailable",
		"No access points observed",
		"No anomalies detected",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteText_OfflineEstimate(t *testing.T) {
	rep := sampleReport()
	rep.RadioLocation = types.RadioLocation{
		Latitude:  28.6139,
		Longitude: 77.2090,
		AccuracyM: -1,
		Source:    types.SourceOffline,
		Place:     "New Delhi, IN",
		Attempted: true,
	}

	var b strings.Builder
	if err := WriteText(&b, rep); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(b.String(), "offline estimate: New Delhi, IN") {
		t.Errorf("Offline estimate not rendered:\n%s", b.String())
	}
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	var b strings.Builder
	if err := WriteJSON(&b, sampleReport()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded types.Report
	if err := json.Unmarshal([]byte(b.String()), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.IPLocation == nil || decoded.IPLocation.IP != "1.2.3.4" {
		t.Errorf("Unexpected decoded report: %+v", decoded)
	}
	if len(decoded.Flags) != 1 || decoded.Flags[0] != types.FlagPossibleVPN {
		t.Errorf("Unexpected flags: %v", decoded.Flags)
	}
}

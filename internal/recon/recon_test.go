package recon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"georecon/internal/config"
	"georecon/internal/engine"
	"georecon/internal/types"
)

type fakeIPLocator struct {
	result *types.IPLocation
	err    error
}

func (f *fakeIPLocator) Locate(ctx context.Context, target string) (*types.IPLocation, error) {
	return f.result, f.err
}

type fakeScanner struct {
	aps []types.AccessPoint
}

func (f *fakeScanner) Scan(ctx context.Context) []types.AccessPoint {
	return f.aps
}

type fakeRadioLocator struct {
	result types.RadioLocation
}

func (f *fakeRadioLocator) Locate(ctx context.Context, aps []types.AccessPoint) types.RadioLocation {
	f.result.Attempted = len(aps) > 0
	return f.result
}

type fakeGeocoder struct {
	country string
	err     error
	calls   int
}

func (f *fakeGeocoder) Country(ctx context.Context, lat, lon float64) (string, error) {
	f.calls++
	return f.country, f.err
}

type fakeFingerprinter struct {
	model string
}

func (f *fakeFingerprinter) Model(ctx context.Context) string {
	return f.model
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newPipeline(ip *fakeIPLocator, sc *fakeScanner, rl *fakeRadioLocator, gc *fakeGeocoder, fp *fakeFingerprinter) *Pipeline {
	return &Pipeline{
		IPLocator:     ip,
		Scanner:       sc,
		RadioLocator:  rl,
		Geocoder:      gc,
		Fingerprinter: fp,
		Engine:        engine.New(config.DefaultVPNTokens, config.DefaultVMMarkers),
		Logger:        testLogger(),
	}
}

func TestRun_FullCleanCycle(t *testing.T) {
	gc := &fakeGeocoder{country: "India"}
	p := newPipeline(
		&fakeIPLocator{result: &types.IPLocation{IP: "1.2.3.4", Country: "India", ISP: "Bharti Airtel"}},
		&fakeScanner{aps: []types.AccessPoint{{BSSID: "aa:bb:cc:dd:ee:ff"}}},
		&fakeRadioLocator{result: types.RadioLocation{Latitude: 28.61, Longitude: 77.21, Source: types.SourceRemote}},
		gc,
		&fakeFingerprinter{model: "ThinkPad X1"},
	)

	rep := p.Run(context.Background(), "")

	if rep.IPLocation == nil || rep.IPLocation.IP != "1.2.3.4" {
		t.Errorf("Unexpected IP location: %+v", rep.IPLocation)
	}
	if len(rep.AccessPoints) != 1 {
		t.Errorf("Expected 1 access point, got %d", len(rep.AccessPoints))
	}
	if rep.RadioCountry != "India" {
		t.Errorf("Expected radio country India, got %q", rep.RadioCountry)
	}
	if gc.calls != 1 {
		t.Errorf("Expected one geocode call, got %d", gc.calls)
	}
	if len(rep.Flags) != 0 {
		t.Errorf("Expected no flags, got %v", rep.Flags)
	}
}

func TestRun_CleanVerdictMarshalsAsEmptyArray(t *testing.T) {
	p := newPipeline(
		&fakeIPLocator{result: &types.IPLocation{IP: "1.2.3.4", Country: "India", ISP: "Bharti Airtel"}},
		&fakeScanner{aps: []types.AccessPoint{{BSSID: "aa:bb:cc:dd:ee:ff"}}},
		&fakeRadioLocator{result: types.RadioLocation{Latitude: 28.61, Longitude: 77.21, Source: types.SourceRemote}},
		&fakeGeocoder{country: "India"},
		&fakeFingerprinter{model: "ThinkPad X1"},
	)

	rep := p.Run(context.Background(), "")

	body, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(string(body), `"flags":[]`) {
		t.Errorf("Expected an empty flags array in %s", body)
	}
}

func TestRun_AllCollaboratorsDown(t *testing.T) {
	gc := &fakeGeocoder{err: errors.New("unreachable")}
	p := newPipeline(
		&fakeIPLocator{err: errors.New("network down")},
		&fakeScanner{},
		&fakeRadioLocator{result: types.RadioLocation{Source: types.SourceNone}},
		gc,
		&fakeFingerprinter{},
	)

	rep := p.Run(context.Background(), "")

	if rep == nil {
		t.Fatal("Run must always produce a report")
	}
	if rep.IPLocation != nil {
		t.Errorf("Expected unavailable IP location, got %+v", rep.IPLocation)
	}
	if gc.calls != 0 {
		t.Error("Geocoder must not be called without a radio fix")
	}
	if len(rep.Flags) != 0 {
		t.Errorf("Expected empty verdict when everything is silent, got %v", rep.Flags)
	}
}

func TestRun_GeocodeSkippedWithoutFix(t *testing.T) {
	gc := &fakeGeocoder{country: "India"}
	p := newPipeline(
		&fakeIPLocator{result: &types.IPLocation{IP: "1.2.3.4", Country: "India"}},
		&fakeScanner{aps: []types.AccessPoint{{BSSID: "aa:bb:cc:dd:ee:ff"}}},
		&fakeRadioLocator{result: types.RadioLocation{Source: types.SourceNone}},
		gc,
		&fakeFingerprinter{},
	)

	rep := p.Run(context.Background(), "")

	if gc.calls != 0 {
		t.Errorf("Expected no geocode call without a fix, got %d", gc.calls)
	}
	if !rep.HasFlag(types.FlagGeolocationFailed) {
		t.Errorf("Expected GeolocationFailed flag, got %v", rep.Flags)
	}
}

func TestRun_GeocodeFailureSkipsMismatch(t *testing.T) {
	p := newPipeline(
		&fakeIPLocator{result: &types.IPLocation{IP: "1.2.3.4", Country: "India"}},
		&fakeScanner{aps: []types.AccessPoint{{BSSID: "aa:bb:cc:dd:ee:ff"}}},
		&fakeRadioLocator{result: types.RadioLocation{Latitude: 37.77, Longitude: -122.42, Source: types.SourceRemote}},
		&fakeGeocoder{err: errors.New("rate limited")},
		&fakeFingerprinter{},
	)

	rep := p.Run(context.Background(), "")

	if rep.RadioCountry != "" {
		t.Errorf("Expected empty radio country, got %q", rep.RadioCountry)
	}
	if rep.HasFlag(types.FlagLocationMismatch) {
		t.Error("Mismatch must be skipped, not flagged, when the geocode fails")
	}
}

func TestRun_SpoofedHostRaisesEverything(t *testing.T) {
	p := newPipeline(
		&fakeIPLocator{result: &types.IPLocation{IP: "1.2.3.4", Country: "India", ISP: "SomeProxy Cloud"}},
		&fakeScanner{aps: []types.AccessPoint{{BSSID: "aa:bb:cc:dd:ee:ff"}}},
		&fakeRadioLocator{result: types.RadioLocation{Latitude: 37.77, Longitude: -122.42, Source: types.SourceRemote}},
		&fakeGeocoder{country: "United States"},
		&fakeFingerprinter{model: "VMware7,1"},
	)

	rep := p.Run(context.Background(), "")

	for _, expected := range []types.Flag{types.FlagLocationMismatch, types.FlagPossibleVPN, types.FlagVirtualMachine} {
		if !rep.HasFlag(expected) {
			t.Errorf("Expected flag %s, got %v", expected, rep.Flags)
		}
	}
	if rep.HasFlag(types.FlagGeolocationFailed) {
		t.Error("GeolocationFailed must not fire alongside a successful fix")
	}
}

func TestRun_TargetPropagated(t *testing.T) {
	p := newPipeline(
		&fakeIPLocator{result: &types.IPLocation{IP: "8.8.8.8"}},
		&fakeScanner{},
		&fakeRadioLocator{result: types.RadioLocation{Source: types.SourceNone}},
		&fakeGeocoder{},
		&fakeFingerprinter{},
	)

	rep := p.Run(context.Background(), "8.8.8.8")

	if rep.Target != "8.8.8.8" {
		t.Errorf("Expected target in report, got %q", rep.Target)
	}
}

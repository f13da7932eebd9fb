// Package recon orchestrates one scan-and-report cycle: IP lookup, radio
// scan, radio geolocation, reverse geocode, hardware fingerprint, then the
// inference engine. Strictly sequential and single-pass; each collaborator
// runs once and its result, success or degraded, is passed forward.
package recon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"georecon/internal/engine"
	"georecon/internal/types"
)

// IPLocator resolves the public-network location of the target
type IPLocator interface {
	Locate(ctx context.Context, target string) (*types.IPLocation, error)
}

// Scanner enumerates nearby wireless access points
type Scanner interface {
	Scan(ctx context.Context) []types.AccessPoint
}

// RadioLocator converts an access point list into a location estimate
type RadioLocator interface {
	Locate(ctx context.Context, aps []types.AccessPoint) types.RadioLocation
}

// Geocoder resolves coordinates to a country name
type Geocoder interface {
	Country(ctx context.Context, lat, lon float64) (string, error)
}

// Fingerprinter retrieves the hardware model descriptor
type Fingerprinter interface {
	Model(ctx context.Context) string
}

// Pipeline wires the acquisition collaborators to the inference engine
type Pipeline struct {
	IPLocator     IPLocator
	Scanner       Scanner
	RadioLocator  RadioLocator
	Geocoder      Geocoder
	Fingerprinter Fingerprinter
	Engine        *engine.Engine
	Logger        *logrus.Logger
}

// Run executes one full cycle and assembles the report. Collaborator
// failures degrade to their sentinel values; Run itself never fails and
// always yields a verdict, possibly empty.
func (p *Pipeline) Run(ctx context.Context, target string) *types.Report {
	report := &types.Report{
		Timestamp: time.Now().UTC(),
		Target:    target,
	}

	ipLoc, err := p.IPLocator.Locate(ctx, target)
	if err != nil {
		p.Logger.Warnf("IP location unavailable: %v", err)
	}
	report.IPLocation = ipLoc

	report.AccessPoints = p.Scanner.Scan(ctx)
	report.RadioLocation = p.RadioLocator.Locate(ctx, report.AccessPoints)

	// The mismatch rule needs a comparable country for the radio fix.
	// Geocode failure skips the rule rather than flagging anything.
	if report.RadioLocation.Fix() {
		country, err := p.Geocoder.Country(ctx, report.RadioLocation.Latitude, report.RadioLocation.Longitude)
		if err != nil {
			p.Logger.Warnf("Reverse geocode unavailable, mismatch check skipped: %v", err)
		} else {
			report.RadioCountry = country
		}
	}

	report.HardwareModel = p.Fingerprinter.Model(ctx)

	report.Flags = p.Engine.Evaluate(report.IPLocation, report.RadioLocation, report.RadioCountry, report.HardwareModel)

	p.Logger.WithFields(logrus.Fields{
		"target":        target,
		"access_points": len(report.AccessPoints),
		"radio_source":  report.RadioLocation.Source,
		"flags":         len(report.Flags),
	}).Info("recon_cycle_completed")

	return report
}

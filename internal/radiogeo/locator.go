package radiogeo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"georecon/internal/types"
)

// offlineAccuracy marks an offline estimate; the table carries no
// meaningful accuracy figure.
const offlineAccuracy = -1

// Locator converts an access point list into a best-effort location
// estimate, first via the remote positioning service, then via the offline
// fallback table.
type Locator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	table    OfflineTable
	logger   *logrus.Logger
}

// geolocateRequest is the positioning service request body. Entries with
// unknown signal omit signalStrength rather than fabricate a number.
type geolocateRequest struct {
	WifiAccessPoints []wifiAccessPoint `json:"wifiAccessPoints"`
}

type wifiAccessPoint struct {
	MacAddress     string `json:"macAddress"`
	SignalStrength *int   `json:"signalStrength,omitempty"`
}

type geolocateResponse struct {
	Location *struct {
		Lat *float64 `json:"lat"`
		Lng float64  `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// NewLocator creates a radio geolocator with an immutable fallback table
func NewLocator(endpoint, apiKey string, client *http.Client, table OfflineTable, logger *logrus.Logger) *Locator {
	return &Locator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		table:    table,
		logger:   logger,
	}
}

// Locate produces a location estimate from the observed access points.
// Every code path yields a well-formed result; SourceNone is the valid
// terminal state when neither the remote service nor the offline table can
// place the host. The function never returns an error by contract.
func (l *Locator) Locate(ctx context.Context, aps []types.AccessPoint) types.RadioLocation {
	if len(aps) == 0 {
		return types.RadioLocation{Source: types.SourceNone, Attempted: false}
	}

	loc, err := l.remote(ctx, aps)
	if err == nil {
		return loc
	}
	l.logger.Warnf("Remote positioning failed, trying offline table: %v", err)

	// First scan-order match wins. Ties break on scan order rather than
	// signal strength to keep the fallback deterministic.
	for _, ap := range aps {
		if entry, ok := l.table.Lookup(ap.BSSID); ok {
			l.logger.Infof("Offline table matched %s (%s)", ap.BSSID, entry.Place)
			return types.RadioLocation{
				Latitude:  entry.Latitude,
				Longitude: entry.Longitude,
				AccuracyM: offlineAccuracy,
				Source:    types.SourceOffline,
				Place:     entry.Place,
				Attempted: true,
			}
		}
	}

	return types.RadioLocation{Source: types.SourceNone, Attempted: true}
}

func (l *Locator) remote(ctx context.Context, aps []types.AccessPoint) (types.RadioLocation, error) {
	reqBody := geolocateRequest{WifiAccessPoints: make([]wifiAccessPoint, 0, len(aps))}
	for _, ap := range aps {
		reqBody.WifiAccessPoints = append(reqBody.WifiAccessPoints, wifiAccessPoint{
			MacAddress:     ap.BSSID,
			SignalStrength: ap.SignalPct,
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return types.RadioLocation{}, err
	}

	url := l.endpoint
	if l.apiKey != "" {
		url += "?key=" + l.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.RadioLocation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return types.RadioLocation{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.RadioLocation{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.RadioLocation{}, fmt.Errorf("http status %d", resp.StatusCode)
	}

	var parsed geolocateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return types.RadioLocation{}, err
	}

	// Absence of a latitude means the service could not place us, which
	// triggers the offline fallback rather than an error to the caller.
	// A location block without a lat field counts as absent too.
	if parsed.Location == nil || parsed.Location.Lat == nil {
		return types.RadioLocation{}, fmt.Errorf("no usable latitude in response")
	}

	return types.RadioLocation{
		Latitude:  *parsed.Location.Lat,
		Longitude: parsed.Location.Lng,
		AccuracyM: parsed.Accuracy,
		Source:    types.SourceRemote,
		Attempted: true,
	}, nil
}

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Reverse resolves coordinates back to an address. Used by the inference
// pipeline to derive a comparable country for the radio-based fix.
type Reverse struct {
	endpoint string
	client   *http.Client
}

type reverseResponse struct {
	Address struct {
		Country string `json:"country"`
	} `json:"address"`
	Country string `json:"country"`
}

// NewReverse creates a reverse geocoder against a Nominatim-style endpoint
func NewReverse(endpoint string, client *http.Client) *Reverse {
	return &Reverse{endpoint: endpoint, client: client}
}

// Country returns the country for the given coordinates. Errors are
// expected and mean the mismatch check is skipped, never flagged.
func (r *Reverse) Country(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "georecon/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	var parsed reverseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}

	country := parsed.Address.Country
	if country == "" {
		country = parsed.Country
	}
	if country == "" {
		return "", fmt.Errorf("missing country field in response")
	}

	return country, nil
}

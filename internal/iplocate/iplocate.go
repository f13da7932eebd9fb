package iplocate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	geoip2 "github.com/oschwald/geoip2-golang"
	"github.com/sirupsen/logrus"

	"georecon/internal/types"
)

// Locator resolves the public-network location of a host from an IP
// intelligence endpoint, with an optional local MaxMind database fallback
// for explicit targets.
type Locator struct {
	endpoint string
	client   *http.Client
	mmdb     *geoip2.Reader
	logger   *logrus.Logger
}

// apiResponse mirrors the ip-api.com JSON contract. Missing fields are
// absent, not fatal.
type apiResponse struct {
	Status     string  `json:"status"`
	Query      string  `json:"query"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
	Org        string  `json:"org"`
	ISP        string  `json:"isp"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// NewLocator creates a locator. mmdbPath may be empty; when set and the
// database cannot be opened the locator still works, HTTP-only.
func NewLocator(endpoint string, client *http.Client, mmdbPath string, logger *logrus.Logger) *Locator {
	l := &Locator{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
		logger:   logger,
	}

	if mmdbPath != "" {
		db, err := geoip2.Open(mmdbPath)
		if err != nil {
			logger.Warnf("Failed to open MMDB %s, offline IP lookups disabled: %v", mmdbPath, err)
		} else {
			l.mmdb = db
			logger.Infof("Offline IP database loaded from %s", mmdbPath)
		}
	}

	return l
}

// Close releases the MMDB reader if one was opened
func (l *Locator) Close() error {
	if l.mmdb != nil {
		return l.mmdb.Close()
	}
	return nil
}

// Locate resolves the location of target, or of the calling host when
// target is empty. A nil result means the lookup was unavailable; the
// returned error carries the cause for logging only — callers must treat
// it as a degraded state, not a failure of the run.
func (l *Locator) Locate(ctx context.Context, target string) (*types.IPLocation, error) {
	info, err := l.fetch(ctx, target)
	if err == nil {
		return info, nil
	}

	// The offline database can only answer for an explicit target; the
	// host's own public IP is unknown without the network.
	if target != "" && l.mmdb != nil {
		if offline := l.lookupOffline(target); offline != nil {
			l.logger.Warnf("IP intelligence lookup failed (%v), using offline database", err)
			return offline, nil
		}
	}

	return nil, err
}

func (l *Locator) fetch(ctx context.Context, target string) (*types.IPLocation, error) {
	url := l.endpoint
	if target != "" {
		url += "/" + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if parsed.Status != "" && parsed.Status != "success" {
		return nil, fmt.Errorf("lookup status %q", parsed.Status)
	}
	isp := parsed.Org
	if isp == "" {
		isp = parsed.ISP
	}

	// Individual fields may be absent. Only a response that carries
	// nothing at all is treated as a failed lookup.
	if parsed.Query == "" && parsed.City == "" && parsed.RegionName == "" &&
		parsed.Country == "" && isp == "" {
		return nil, fmt.Errorf("no usable fields in response")
	}

	return &types.IPLocation{
		IP:        parsed.Query,
		City:      parsed.City,
		Region:    parsed.RegionName,
		Country:   parsed.Country,
		ISP:       isp,
		Latitude:  parsed.Lat,
		Longitude: parsed.Lon,
	}, nil
}

func (l *Locator) lookupOffline(target string) *types.IPLocation {
	ipAddr := net.ParseIP(target)
	if ipAddr == nil {
		return nil
	}

	city, err := l.mmdb.City(ipAddr)
	if err != nil {
		l.logger.Debugf("MMDB lookup for %s failed: %v", target, err)
		return nil
	}

	info := &types.IPLocation{
		IP:        target,
		Country:   city.Country.Names["en"],
		City:      city.City.Names["en"],
		Latitude:  city.Location.Latitude,
		Longitude: city.Location.Longitude,
	}
	if len(city.Subdivisions) > 0 {
		info.Region = city.Subdivisions[0].Names["en"]
	}
	if info.Country == "" && info.City == "" {
		return nil
	}
	return info
}

package radiogeo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// OfflineEntry maps a known access point to a known physical location
type OfflineEntry struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Place     string  `json:"place"`
}

// OfflineTable is the operator-maintained fallback mapping from access
// point identifiers to locations. Lookup is case-insensitive; the table is
// loaded once at startup and never mutated afterwards.
type OfflineTable map[string]OfflineEntry

// DefaultOfflineTable returns the built-in fallback entries
func DefaultOfflineTable() OfflineTable {
	return OfflineTable{
		"68:34:21:cb:c2:01": {Latitude: 28.6139, Longitude: 77.2090, Place: "New Delhi, IN"},
		"50:c7:bf:2a:91:aa": {Latitude: 51.5074, Longitude: -0.1278, Place: "London, GB"},
		"a4:2b:b0:91:33:07": {Latitude: 37.7749, Longitude: -122.4194, Place: "San Francisco, US"},
	}
}

// LoadOfflineTable reads a JSON table from path, falling back to the
// built-in defaults when path is empty. Keys are normalized to lowercase.
func LoadOfflineTable(path string) (OfflineTable, error) {
	if path == "" {
		return DefaultOfflineTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read offline table: %w", err)
	}

	var raw map[string]OfflineEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse offline table: %w", err)
	}

	table := make(OfflineTable, len(raw))
	for bssid, entry := range raw {
		table[strings.ToLower(strings.TrimSpace(bssid))] = entry
	}

	return table, nil
}

// Lookup finds the entry for a BSSID, case-insensitively
func (t OfflineTable) Lookup(bssid string) (OfflineEntry, bool) {
	entry, ok := t[strings.ToLower(bssid)]
	return entry, ok
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// External service endpoints
	IPIntelURL     string `json:"ip_intel_url"`
	PositioningURL string `json:"positioning_url"`
	PositioningKey string `json:"positioning_key"`
	GeocodeURL     string `json:"geocode_url"`

	// Request behaviour
	HTTPTimeout time.Duration `json:"http_timeout"`

	// Offline data
	OfflineTablePath string `json:"offline_table_path"`
	MMDBPath         string `json:"mmdb_path"`

	// Detection token lists
	VPNTokens []string `json:"vpn_tokens"`
	VMMarkers []string `json:"vm_markers"`

	// Scanner configuration
	WirelessInterface string `json:"wireless_interface"`

	// Server configuration
	Port int `json:"port"`

	// Cache configuration (serve mode only)
	CacheEnabled    bool          `json:"cache_enabled"`
	CacheTTL        time.Duration `json:"cache_ttl"`
	CacheMaxEntries int           `json:"cache_max_entries"`

	// Monitor configuration
	MonitorSchedule string `json:"monitor_schedule"`

	// Logging configuration
	LogLevel string `json:"log_level"`
}

// DefaultVPNTokens are ISP/org substrings that suggest an anonymized or
// cloud-hosted egress. False positives from legitimate cloud ISPs are
// accepted noise.
var DefaultVPNTokens = []string{"vpn", "proxy", "cloudflare", "digitalocean", "linode", "aws", "azure"}

// DefaultVMMarkers are hardware model substrings that suggest virtualization
var DefaultVMMarkers = []string{"virtualbox", "vmware", "kvm", "qemu"}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		IPIntelURL:        getEnvStr("IP_INTEL_URL", "http://ip-api.com/json"),
		PositioningURL:    getEnvStr("POSITIONING_URL", "https://location.services.mozilla.com/v1/geolocate"),
		PositioningKey:    getEnvStr("POSITIONING_KEY", "geoclue"),
		GeocodeURL:        getEnvStr("GEOCODE_URL", "https://nominatim.openstreetmap.org/reverse"),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 8*time.Second),
		OfflineTablePath:  getEnvStr("OFFLINE_TABLE", ""),
		MMDBPath:          getEnvStr("MMDB_PATH", ""),
		VPNTokens:         getEnvList("VPN_TOKENS", DefaultVPNTokens),
		VMMarkers:         getEnvList("VM_MARKERS", DefaultVMMarkers),
		WirelessInterface: getEnvStr("WIRELESS_INTERFACE", ""),
		Port:              getEnvInt("PORT", 8080),
		CacheEnabled:      getEnvBool("CACHE_ENABLED", true),
		CacheTTL:          getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheMaxEntries:   getEnvInt("CACHE_MAX_ENTRIES", 1000),
		MonitorSchedule:   getEnvStr("MONITOR_SCHEDULE", "@every 5m"),
		LogLevel:          getEnvStr("LOG_LEVEL", "info"),
	}

	return cfg
}

// getEnvStr gets string value from environment variable with default
func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets integer value from environment variable with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets boolean value from environment variable with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets duration value from environment variable with default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList gets a comma-separated list from environment variable with default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

package wifi

import (
	"regexp"
	"strconv"
	"strings"

	"georecon/internal/types"
)

var bssidPattern = regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// ParseNmcli parses `nmcli -t -f BSSID,SSID,SIGNAL dev wifi list` output.
// In terse mode fields are colon-separated and the colons inside the BSSID
// are backslash-escaped.
func ParseNmcli(out string) []types.AccessPoint {
	var aps []types.AccessPoint

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := splitTerse(line)
		if len(fields) < 1 {
			continue
		}

		bssid := normalizeBSSID(fields[0])
		if bssid == "" {
			continue
		}

		ap := types.AccessPoint{BSSID: bssid}
		if len(fields) > 1 {
			ap.SSID = fields[1]
		}
		if len(fields) > 2 {
			if pct, err := strconv.Atoi(fields[2]); err == nil {
				ap.SignalPct = &pct
			}
		}

		aps = append(aps, ap)
	}

	return aps
}

// splitTerse splits an nmcli terse line on unescaped colons and unescapes
// the remaining characters.
func splitTerse(line string) []string {
	var fields []string
	var cur strings.Builder

	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())

	return fields
}

// ParseNetsh parses `netsh wlan show networks mode=bssid` output. The
// format is an indented key/value block per network; BSSID lines open a new
// observation and the following Signal line attaches to it.
func ParseNetsh(out string) []types.AccessPoint {
	var aps []types.AccessPoint
	var ssid string

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)

		key, value, ok := splitKV(line)
		if !ok {
			continue
		}

		switch {
		case strings.HasPrefix(key, "SSID"):
			ssid = value
		case strings.HasPrefix(key, "BSSID"):
			bssid := normalizeBSSID(value)
			if bssid == "" {
				continue
			}
			aps = append(aps, types.AccessPoint{BSSID: bssid, SSID: ssid})
		case key == "Signal" && len(aps) > 0:
			value = strings.TrimSuffix(value, "%")
			if pct, err := strconv.Atoi(value); err == nil {
				last := &aps[len(aps)-1]
				if last.SignalPct == nil {
					last.SignalPct = &pct
				}
			}
		}
	}

	return aps
}

func splitKV(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

// normalizeBSSID lowercases an identifier and verifies it looks like a MAC
// address. Identifiers are used as case-insensitive lookup keys downstream,
// so normalization happens here, once.
func normalizeBSSID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !bssidPattern.MatchString(s) {
		return ""
	}
	return s
}

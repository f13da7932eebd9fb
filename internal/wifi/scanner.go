package wifi

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"

	"georecon/internal/types"
)

// Runner executes the platform radio-listing command. Injectable so tests
// never depend on an actual wireless adapter.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Scanner enumerates nearby wireless access points by invoking the
// platform radio-listing facility and parsing its output.
type Scanner struct {
	iface  string
	runner Runner
	goos   string
	logger *logrus.Logger
}

// NewScanner creates a scanner for the current platform. iface may be
// empty, in which case the platform tool picks the adapter itself.
func NewScanner(iface string, logger *logrus.Logger) *Scanner {
	return &Scanner{
		iface:  iface,
		runner: execRunner,
		goos:   runtime.GOOS,
		logger: logger,
	}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Scan runs one radio scan. Every failure mode (missing tool, no adapter,
// unparsable output) degrades to an empty slice; zero access points is a
// legitimate downstream state, not an error.
func (s *Scanner) Scan(ctx context.Context) []types.AccessPoint {
	name, args, parse := s.command()

	out, err := s.runner(ctx, name, args...)
	if err != nil {
		s.logger.Warnf("Radio scan command %s failed: %v", name, err)
		return nil
	}

	aps := parse(string(out))
	s.logger.Debugf("Radio scan observed %d access points", len(aps))
	return aps
}

func (s *Scanner) command() (string, []string, func(string) []types.AccessPoint) {
	switch s.goos {
	case "windows":
		return "netsh", []string{"wlan", "show", "networks", "mode=bssid"}, ParseNetsh
	default:
		args := []string{"-t", "-f", "BSSID,SSID,SIGNAL", "dev", "wifi", "list"}
		if s.iface != "" {
			args = append(args, "ifname", s.iface)
		}
		return "nmcli", args, ParseNmcli
	}
}

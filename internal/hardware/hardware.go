package hardware

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fingerprinter retrieves a hardware/model descriptor for the host. The
// descriptor is a virtualization signal for the inference engine; an empty
// string means "no signal" and is never treated as an error.
type Fingerprinter struct {
	goos     string
	readFile func(string) ([]byte, error)
	runner   func(ctx context.Context, name string, args ...string) ([]byte, error)
	logger   *logrus.Logger
}

// NewFingerprinter creates a fingerprinter for the current platform
func NewFingerprinter(logger *logrus.Logger) *Fingerprinter {
	return &Fingerprinter{
		goos:     runtime.GOOS,
		readFile: os.ReadFile,
		runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		logger: logger,
	}
}

// Model returns the hardware model string, or "" when it cannot be read
func (f *Fingerprinter) Model(ctx context.Context) string {
	var model string

	switch f.goos {
	case "linux":
		model = f.fromDMI()
	case "darwin":
		model = f.fromCommand(ctx, "sysctl", "-n", "hw.model")
	case "windows":
		model = f.fromWMIC(ctx)
	}

	if model == "" {
		f.logger.Debug("Hardware model unavailable")
	}
	return model
}

func (f *Fingerprinter) fromDMI() string {
	for _, path := range []string{
		"/sys/devices/virtual/dmi/id/product_name",
		"/sys/class/dmi/id/product_name",
	} {
		data, err := f.readFile(path)
		if err != nil {
			continue
		}
		if model := strings.TrimSpace(string(data)); model != "" {
			return model
		}
	}
	return ""
}

func (f *Fingerprinter) fromCommand(ctx context.Context, name string, args ...string) string {
	out, err := f.runner(ctx, name, args...)
	if err != nil {
		f.logger.Debugf("Hardware command %s failed: %v", name, err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (f *Fingerprinter) fromWMIC(ctx context.Context) string {
	out := f.fromCommand(ctx, "wmic", "computersystem", "get", "model")
	// Output is a header line followed by the value
	for _, line := range strings.Split(out, "\n")[1:] {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

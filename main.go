package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"georecon/internal/cache"
	"georecon/internal/config"
	"georecon/internal/engine"
	"georecon/internal/geocode"
	"georecon/internal/handlers"
	"georecon/internal/hardware"
	"georecon/internal/iplocate"
	"georecon/internal/radiogeo"
	"georecon/internal/recon"
	"georecon/internal/report"
	"georecon/internal/types"
	"georecon/internal/wifi"
)

var (
	cfg    *config.Config
	logger *logrus.Logger

	outputFormat string
)

func init() {
	// Initialize logger
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stderr)

	// Load configuration
	cfg = config.LoadConfig()

	// Set log level
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "georecon [target-ip]",
		Short: "Host location reconnaissance and spoofing detection",
		Long: `Determines a host's public-network location (IP geolocation) and
local-radio location (nearby wireless access points), then flags
inconsistencies that suggest identity or location spoofing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}

	// Add CLI flags
	rootCmd.PersistentFlags().StringVar(&cfg.IPIntelURL, "ip-intel-url", cfg.IPIntelURL, "IP intelligence endpoint")
	rootCmd.PersistentFlags().StringVar(&cfg.PositioningURL, "positioning-url", cfg.PositioningURL, "Radio positioning endpoint")
	rootCmd.PersistentFlags().StringVar(&cfg.PositioningKey, "positioning-key", cfg.PositioningKey, "Radio positioning API key")
	rootCmd.PersistentFlags().StringVar(&cfg.GeocodeURL, "geocode-url", cfg.GeocodeURL, "Reverse geocoding endpoint")
	rootCmd.PersistentFlags().DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "Timeout per external HTTP call")
	rootCmd.PersistentFlags().StringVar(&cfg.OfflineTablePath, "offline-table", cfg.OfflineTablePath, "Path to offline BSSID table (JSON)")
	rootCmd.PersistentFlags().StringVar(&cfg.MMDBPath, "mmdb", cfg.MMDBPath, "Path to MaxMind city database for offline IP lookups")
	rootCmd.PersistentFlags().StringVar(&cfg.WirelessInterface, "interface", cfg.WirelessInterface, "Wireless interface to scan")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")

	// Serve flags
	rootCmd.PersistentFlags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP port for serve mode")
	rootCmd.PersistentFlags().BoolVar(&cfg.CacheEnabled, "cache-enabled", cfg.CacheEnabled, "Enable report caching in serve mode")
	rootCmd.PersistentFlags().DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Report cache TTL")
	rootCmd.PersistentFlags().IntVar(&cfg.CacheMaxEntries, "cache-max-entries", cfg.CacheMaxEntries, "Maximum cached reports")

	// Monitor flags
	rootCmd.PersistentFlags().StringVar(&cfg.MonitorSchedule, "schedule", cfg.MonitorSchedule, "Monitor schedule (cron format)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

// buildPipeline wires all acquisition collaborators to the engine
func buildPipeline() (*recon.Pipeline, *iplocate.Locator, error) {
	table, err := radiogeo.LoadOfflineTable(cfg.OfflineTablePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load offline table: %w", err)
	}
	logger.Infof("Offline fallback table loaded with %d entries", len(table))

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	ipLocator := iplocate.NewLocator(cfg.IPIntelURL, client, cfg.MMDBPath, logger)

	pipeline := &recon.Pipeline{
		IPLocator:     ipLocator,
		Scanner:       wifi.NewScanner(cfg.WirelessInterface, logger),
		RadioLocator:  radiogeo.NewLocator(cfg.PositioningURL, cfg.PositioningKey, client, table, logger),
		Geocoder:      geocode.NewReverse(cfg.GeocodeURL, client),
		Fingerprinter: hardware.NewFingerprinter(logger),
		Engine:        engine.New(cfg.VPNTokens, cfg.VMMarkers),
		Logger:        logger,
	}

	return pipeline, ipLocator, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 1 {
		target = args[0]
		if net.ParseIP(target) == nil {
			return fmt.Errorf("invalid target IP: %s", target)
		}
	}

	pipeline, ipLocator, err := buildPipeline()
	if err != nil {
		return err
	}
	defer ipLocator.Close()

	rep := pipeline.Run(cmd.Context(), target)

	if outputFormat == "json" {
		return report.WriteJSON(os.Stdout, rep)
	}
	return report.WriteText(os.Stdout, rep)
}

// Serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the reconnaissance pipeline over HTTP",
	Long:  `Start an HTTP server that runs a scan-and-report cycle per request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, ipLocator, err := buildPipeline()
		if err != nil {
			return err
		}
		defer ipLocator.Close()

		var reportCache *cache.ReportCache
		if cfg.CacheEnabled {
			reportCache = cache.NewReportCache(cfg.CacheTTL, cfg.CacheMaxEntries, logger)
			defer reportCache.Close()
			logger.Infof("Report cache enabled - TTL: %v, Max entries: %d", cfg.CacheTTL, cfg.CacheMaxEntries)
		} else {
			logger.Info("Report cache disabled")
		}

		runner := handlers.PipelineFunc(func(ctx context.Context, target string) (*types.Report, error) {
			return pipeline.Run(ctx, target), nil
		})

		apiHandler := handlers.NewAPIHandler(runner, reportCache, logger)
		router := apiHandler.SetupRoutes()

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrChan := make(chan error, 1)
		go func() {
			logger.Infof("Starting HTTP server on port %d", cfg.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-quit:
			logger.Info("Received shutdown signal, shutting down gracefully...")
		case err := <-serverErrChan:
			logger.Errorf("Server error: %v", err)
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("HTTP server shutdown error: %v", err)
			server.Close()
		} else {
			logger.Info("HTTP server shut down gracefully")
		}

		return nil
	},
}

// Monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Re-run reconnaissance on a schedule",
	Long:  `Run the scan-and-report cycle on a cron schedule and log when the verdict changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, ipLocator, err := buildPipeline()
		if err != nil {
			return err
		}
		defer ipLocator.Close()

		var lastVerdict string
		runOnce := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*cfg.HTTPTimeout)
			defer cancel()

			rep := pipeline.Run(ctx, "")
			verdict := verdictKey(rep.Flags)

			if verdict != lastVerdict {
				logger.Warnf("Verdict changed: %q -> %q", lastVerdict, verdict)
				if err := report.WriteText(os.Stdout, rep); err != nil {
					logger.Errorf("Failed to render report: %v", err)
				}
				lastVerdict = verdict
			} else {
				logger.Debugf("Verdict unchanged: %q", verdict)
			}
		}

		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.MonitorSchedule, runOnce); err != nil {
			return fmt.Errorf("invalid monitor schedule %q: %w", cfg.MonitorSchedule, err)
		}

		logger.Infof("Monitoring on schedule: %s", cfg.MonitorSchedule)
		runOnce()
		scheduler.Start()
		defer scheduler.Stop()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("Monitor stopped")
		return nil
	},
}

// verdictKey builds an order-independent key for flag-set comparison
func verdictKey(flags []types.Flag) string {
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Table command
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Show the offline fallback table",
	Long:  `Print the offline BSSID-to-location fallback table in effect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := radiogeo.LoadOfflineTable(cfg.OfflineTablePath)
		if err != nil {
			return err
		}

		bssids := make([]string, 0, len(table))
		for bssid := range table {
			bssids = append(bssids, bssid)
		}
		sort.Strings(bssids)

		fmt.Println("Offline fallback table:")
		fmt.Println("=======================")
		for _, bssid := range bssids {
			entry := table[bssid]
			fmt.Printf("%s  %.4f, %.4f  %s\n", bssid, entry.Latitude, entry.Longitude, entry.Place)
		}

		return nil
	},
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version and build information.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("georecon v1.0.0")
		fmt.Printf("Offline IP database: %v\n", cfg.MMDBPath != "")
		fmt.Printf("Report cache: %v\n", cfg.CacheEnabled)
	},
}

// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vidrelay/internal/config"
	"vidrelay/internal/delivery"
	"vidrelay/internal/history"
	"vidrelay/internal/httputil"
	"vidrelay/internal/logging"
	"vidrelay/internal/metrics"
	"vidrelay/internal/provider"
	"vidrelay/internal/resolve"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig    string
	flagProviders []string
	flagEngine    string
	flagJSON      bool
	flagDebug     bool
	flagNoHistory bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

// logCloser releases the log file, if any.
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:   "vidrelay",
	Short: "Resolve video pages into downloadable renditions",
	Long: `vidrelay resolves a video page URL into the renditions its upstream
providers offer, then redirects to, buffers or streams the one you pick.
Run "vidrelay serve" for the HTTP API or "vidrelay get <url>" to download.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: closeLog,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/vidrelay/config.toml)")
	rootCmd.PersistentFlags().StringSliceVarP(&flagProviders, "providers", "p", nil, "Provider order, e.g. relay,ytdown,direct,scrape")
	rootCmd.PersistentFlags().StringVarP(&flagEngine, "engine", "e", "", "Direct extraction engine: yt-dlp | native")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record deliveries")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if len(flagProviders) > 0 {
		cfg.Providers = flagProviders
	}
	if flagEngine != "" {
		cfg.Direct.Engine = flagEngine
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagNoHistory {
		cfg.History = false
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser, err = logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	return nil
}

func closeLog(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// newResolver builds the provider chain from the configuration.
func newResolver(m *metrics.Metrics) (*resolve.Resolver, error) {
	providers, err := provider.Build(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("building providers: %w", err)
	}
	logrus.Debugf("provider order: %v", cfg.Providers)
	return resolve.New(providers, m), nil
}

// newEngine builds the delivery engine. Streams are bounded only by the
// configured stream timeout.
func newEngine() *delivery.Engine {
	return delivery.New(httputil.NewClient(cfg.Delivery.StreamTimeout.Duration), cfg.Delivery.ChunkSize)
}

// openHistory opens the delivery log, or returns nil when history is off.
func openHistory() (*history.Store, error) {
	if !cfg.History {
		return nil, nil
	}
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}

// debugf logs a message at debug level; it is shown when debug mode is enabled.
func debugf(format string, args ...any) {
	logrus.Debugf(format, args...)
}

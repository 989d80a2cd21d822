package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/rntrec/internal/config"
	"github.com/KaramelBytes/rntrec/internal/dataset"
	"github.com/KaramelBytes/rntrec/internal/logging"
	"github.com/KaramelBytes/rntrec/internal/snapshot"
)

var (
	// Global flags
	cfgFile    string
	debug      bool
	flagSource string
	flagRegion string

	// Loaded configuration
	cfg    *cfgpkg.Global
	cfgErr error
)

var rootCmd = &cobra.Command{
	Use:   "rntrec",
	Short: "rntrec: recommend similar establishments from the tourism registry",
	Long: `rntrec loads a National Tourism Registry (RNT) extract, cleans it for one
region, and recommends establishments with a similar category and locality.
It also reports category, locality and capacity summaries and serves them as JSON.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.rntrec/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "registry extract to load, CSV/TSV/XLSX (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "region to keep (overrides config)")
}

func loadConfig() {
	cfg, cfgErr = nil, nil
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		cfgErr = err
		logging.Init(logging.Config{Level: debugLevel("")})
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("source") && flagSource != "" {
		cfg.Source = flagSource
	}
	if f.Changed("region") && flagRegion != "" {
		cfg.Region = flagRegion
	}
	logging.Init(logging.Config{Level: debugLevel(cfg.LogLevel), Format: cfg.LogFormat})
}

func debugLevel(level string) string {
	if debug {
		return "debug"
	}
	return level
}

// requireConfig returns the loaded configuration or the reason it failed to load.
func requireConfig() (*cfgpkg.Global, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("load config: %w", cfgErr)
	}
	if cfg == nil {
		return nil, errors.New("no config loaded")
	}
	return cfg, nil
}

// loadSnapshot loads the configured source through a fresh store.
func loadSnapshot(ctx context.Context, c *cfgpkg.Global) (*snapshot.Snapshot, error) {
	store, err := snapshot.New(c.CacheSize)
	if err != nil {
		return nil, err
	}
	snap, err := store.Load(ctx, c.Source, c.DatasetOptions())
	if errors.Is(err, dataset.ErrSourceUnavailable) {
		return nil, fmt.Errorf("%w (check that the file exists or pass --source)", err)
	}
	return snap, err
}

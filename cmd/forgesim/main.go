// Command forgesim runs the factory simulation and manages its saves.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forgesim",
		Short: "Factory simulation server and save tooling",
		Long: `forgesim runs a resource-management game session: harvesters gather
raw items, factories turn them into goods, and the player crafts and trades.

Examples:
  forgesim run --config configs/forgesim.yaml
  forgesim run --slot morning
  forgesim save inspect data/save.txt
  forgesim save export --slot morning --out backup.txt.zst
  forgesim catalog
  forgesim foreman --interval 1m`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: ./forgesim.yaml or ./configs/forgesim.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSaveCommand())
	rootCmd.AddCommand(newCatalogCommand())
	rootCmd.AddCommand(newForemanCommand())

	return rootCmd
}

// setup loads the configuration and installs the process logger.
func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	slog.SetDefault(cfg.Logging.NewLogger())
	return cfg, nil
}

// loadCatalog returns the configured catalog, or the built-in one.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Simulation.CatalogPath == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.Simulation.CatalogPath)
	if err != nil {
		return nil, err
	}
	slog.Info("catalog loaded", "path", cfg.Simulation.CatalogPath, "digest", cat.Digest())
	return cat, nil
}

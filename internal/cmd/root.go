// Package cmd implements the weather-mood command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/justestif/go-weather-mood/internal/config"
	"github.com/justestif/go-weather-mood/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "weather-mood",
	Short: "Music recommendations that follow the weather",
	Long: `weather-mood scores the mood of the current weather, learns how each
listener likes that mood adjusted, and recommends matching tracks.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default: CONFIG_PATH or ./config.yaml)")
}

// loadConfig loads and validates configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	return cfg, nil
}

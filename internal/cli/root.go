// Package cli implements the glucopilot-agent command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/glucopilot/glucopilot-agent/internal/config"
	"github.com/glucopilot/glucopilot-agent/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "glucopilot-agent",
	Short: "GluCoPilot agent - collects health data and syncs it to the backend",
	Long: `The GluCoPilot agent collects glucose, activity, sleep and nutrition
data from a health data provider, pushes snapshots to the GluCoPilot
backend and keeps the latest readings and AI insights available to
local consumers over the bridge API.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(glucoseCmd)
	rootCmd.AddCommand(signinCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env if present, parses the environment and starts the
// logger before any command logic runs.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logger.InitWithConfig(cfg.LoggerSettings()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

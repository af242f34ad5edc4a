package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/glucopilot/glucopilot-agent/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the agent configuration",
	Long:  `Loads .env and the environment, validates the result and prints the effective settings with secrets masked.`,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  No .env file found, using environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration failed to load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("✅ Configuration is valid")
	fmt.Println("📋 Effective settings:")
	fmt.Printf("  - API Base URL:    %s\n", cfg.API.BaseURL)
	fmt.Printf("  - API Token:       %s\n", maskSecret(cfg.API.Token))
	if cfg.API.TokenFile != "" {
		fmt.Printf("  - API Token File:  %s\n", cfg.API.TokenFile)
	}
	fmt.Printf("  - Provider:        %s\n", cfg.Provider.Source)
	if cfg.Provider.Source == config.SourceBridge {
		fmt.Printf("  - Exporter URL:    %s\n", cfg.Provider.ExporterURL)
	} else {
		fmt.Printf("  - Fixture:         %s\n", cfg.Provider.FixturePath)
	}
	fmt.Printf("  - Bridge:          %s:%d\n", cfg.Bridge.Host, cfg.Bridge.Port)
	fmt.Printf("  - Sync Interval:   %s\n", cfg.Sync.Interval)
	fmt.Printf("  - Collect Range:   %dh\n", cfg.Sync.RangeHours)
	fmt.Printf("  - History DB:      %v\n", cfg.DB.Enabled)
	if cfg.DB.Enabled {
		fmt.Printf("  - DB Host:         %s:%s/%s\n", cfg.DB.Host, cfg.DB.Port, cfg.DB.DBName)
	}
	if cfg.Redis.Host != "" {
		fmt.Printf("  - Redis:           %s:%s\n", cfg.Redis.Host, cfg.Redis.Port)
	}
	fmt.Printf("  - Dexcom Account:  %s\n", maskSecret(cfg.Dexcom.Username))
	fmt.Printf("  - Log Level:       %s\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output:      %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format:      %s\n", cfg.Logger.Format)
	return nil
}

func maskSecret(value string) string {
	if value == "" {
		return "<not set>"
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

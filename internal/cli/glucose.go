package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

var glucoseCmd = &cobra.Command{
	Use:   "glucose",
	Short: "Fetch the latest CGM reading",
	Long: `Fetches the most recent glucose reading through the backend's stateless
CGM endpoint using the configured Dexcom share credentials.`,
	RunE: runGlucose,
}

func runGlucose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Dexcom.Username == "" || cfg.Dexcom.Password == "" {
		return fmt.Errorf("dexcom credentials are not configured (set GLUCOPILOT_DEXCOM_USERNAME and GLUCOPILOT_DEXCOM_PASSWORD)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reading, err := buildSyncService(cfg).LatestGlucose(ctx, dexcomCredentials(cfg))
	if err != nil {
		return err
	}

	fmt.Printf("%d %s %s\n", reading.Value, reading.Unit, reading.Arrow())
	fmt.Printf("Trend: %s\n", reading.Trend)
	fmt.Printf("Range: %s\n", rangeLabel(domain.ClassifyRange(reading.Value)))
	fmt.Printf("Time:  %s\n", reading.Timestamp.Local().Format(time.RFC1123))
	return nil
}

func rangeLabel(class domain.RangeClass) string {
	switch class {
	case domain.RangeLow:
		return "low ⚠️"
	case domain.RangeHigh:
		return "high ⚠️"
	default:
		return "in range"
	}
}

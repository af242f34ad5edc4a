package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var insightsTimeframe time.Duration

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Fetch AI insights for the recent data window",
	RunE:  runInsights,
}

func init() {
	insightsCmd.Flags().DurationVar(&insightsTimeframe, "timeframe", 0, "Data window to analyze (e.g. 24h, 72h)")
}

func runInsights(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	timeframe := cfg.Sync.Timeframe
	if insightsTimeframe > 0 {
		timeframe = insightsTimeframe
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	insights, err := buildSyncService(cfg).FetchInsights(ctx, timeframe)
	if err != nil {
		return err
	}

	for i, insight := range insights {
		fmt.Printf("%d. [%s/%s] %s\n", i+1, insight.Category, insight.Priority, insight.Title)
		fmt.Printf("   %s\n", insight.Description)
		if len(insight.ActionItems) > 0 {
			fmt.Printf("   Actions: %s\n", strings.Join(insight.ActionItems, "; "))
		}
	}
	return nil
}

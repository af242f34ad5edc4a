package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/glucopilot/glucopilot-agent/internal/logger"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run collect-and-sync cycles on an interval",
	Long: `Keeps the agent running, repeating the collect-and-sync cycle on the
configured interval and backing off exponentially after failures.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Override the configured sync interval (e.g. 10m)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interval := cfg.Sync.Interval
	if watchInterval > 0 {
		interval = watchInterval
	}

	a, _, cleanup, err := buildAgent(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("👀 Watching, syncing every %s (Ctrl+C to stop)\n", interval)
	if err := a.Watch(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("watch stopped")
	return nil
}

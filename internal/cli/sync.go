package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one collect-and-sync cycle",
	Long: `Requests health data access, collects the configured range of samples,
pushes the snapshot to the GluCoPilot backend and refreshes insights.`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, store, cleanup, err := buildAgent(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.RunOnce(ctx); err != nil {
		return err
	}

	snap := store.Snapshot()
	if snap.LastSync != nil {
		fmt.Printf("✅ Synced %d records (steps %d, workouts %d, sleep %.1fh)\n",
			snap.LastSync.RecordCount, snap.LastSync.StepCount,
			snap.LastSync.WorkoutCount, snap.LastSync.SleepHours)
	}
	if len(snap.Insights) > 0 {
		fmt.Printf("💡 %d insights available\n", len(snap.Insights))
	}
	if snap.LatestReading != nil {
		fmt.Printf("🩸 Latest glucose: %d %s %s\n",
			snap.LatestReading.Value, snap.LatestReading.Unit, snap.LatestReading.Arrow())
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/glucopilot/glucopilot-agent/internal/database"
	"github.com/glucopilot/glucopilot-agent/internal/repository"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently completed syncs",
	Long:  `Lists the newest entries from the sync audit log. Requires the history database to be enabled.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of syncs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.DB.Enabled {
		return fmt.Errorf("history database is disabled (set GLUCOPILOT_DB_ENABLED=true)")
	}

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := repository.NewHistoryRepository(db).RecentSyncs(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No syncs recorded yet")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %d records (steps %d, workouts %d, sleep %.1fh)  range %s → %s\n",
			rec.SyncedAt.Local().Format(time.RFC822),
			rec.RecordCount, rec.StepCount, rec.WorkoutCount, rec.SleepHours,
			rec.StartDate.Local().Format("Jan 2 15:04"),
			rec.EndDate.Local().Format("Jan 2 15:04"))
	}
	return nil
}

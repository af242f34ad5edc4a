package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Verify Dexcom share credentials against the backend",
	Long: `Sends the configured Dexcom share credentials to the backend sign-in
endpoint and reports whether they were accepted. Nothing is stored.`,
	RunE: runSignin,
}

func runSignin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Dexcom.Username == "" || cfg.Dexcom.Password == "" {
		return fmt.Errorf("dexcom credentials are not configured (set GLUCOPILOT_DEXCOM_USERNAME and GLUCOPILOT_DEXCOM_PASSWORD)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildSyncService(cfg).SignIn(ctx, dexcomCredentials(cfg)); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Println("✅ Dexcom credentials accepted")
	return nil
}

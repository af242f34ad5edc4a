package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glucopilot/glucopilot-agent/internal/bridge"
	"github.com/glucopilot/glucopilot-agent/internal/logger"
)

var serveNoWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local bridge API with background sync cycles",
	Long: `Starts the read-only bridge server for local UI collaborators and keeps
the agent syncing in the background. Agent events stream to WebSocket
clients on /ws.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Serve the bridge without background sync cycles")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, store, cleanup, err := buildAgent(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := bridge.NewHub(cfg.Bridge.AllowedOrigins)
	server := bridge.NewServer(cfg.Bridge, store, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := hub.BroadcastFromChannel(ctx, a.Events()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("event forwarding stopped", "error", err)
		}
	}()

	if !serveNoWatch {
		go func() {
			if err := a.Watch(ctx, cfg.Sync.Interval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watch loop failed", "error", err)
			}
		}()
	}

	fmt.Printf("🚀 Bridge listening on %s\n", server.Address())
	fmt.Printf("   WebSocket feed: ws://%s:%d/ws\n", cfg.Bridge.Host, cfg.Bridge.Port)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

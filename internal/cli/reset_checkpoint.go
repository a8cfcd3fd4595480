package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/tonkit/internal/core/config"
	"github.com/vietddude/tonkit/internal/infra/storage/postgres"
)

var resetCheckpointCmd = &cobra.Command{
	Use:   "reset-checkpoint",
	Short: "Clear the backfill checkpoint so the next sync refetches full history",
	Run:   runResetCheckpoint,
}

func init() {
	rootCmd.AddCommand(resetCheckpointCmd)
}

func runResetCheckpoint(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver != "postgres" {
		fmt.Println("reset-checkpoint requires postgres storage")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Storage.Postgres)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	// Direct SQL is cleaner than a repo for a one-off override.
	if _, err := db.ExecContext(ctx, "DELETE FROM event_sync_state"); err != nil {
		slog.Error("Failed to reset checkpoint", "error", err)
		os.Exit(1)
	}

	fmt.Println("Backfill checkpoint cleared; the next event sync walks full history")
}

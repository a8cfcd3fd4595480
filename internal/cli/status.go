package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/tonkit/internal/core/config"
	"github.com/vietddude/tonkit/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached wallet state",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver != "postgres" {
		fmt.Println("status requires postgres storage")
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

	var eventCount int64
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event").Scan(&eventCount)

	var allSynced bool
	_ = db.QueryRowContext(ctx, "SELECT all_synced FROM event_sync_state LIMIT 1").Scan(&allSynced)

	rows, err := db.QueryContext(ctx, "SELECT address, balance, status FROM account")
	if err != nil {
		slog.Error("Failed to query accounts", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ADDRESS\tBALANCE\tSTATUS\tEVENTS\tBACKFILLED")

	for rows.Next() {
		var address, balance, status string
		if err := rows.Scan(&address, &balance, &status); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", address, balance, status, eventCount, allSynced)
	}
	_ = w.Flush()
}

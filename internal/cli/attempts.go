package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devwspito/pasos-httpkit/internal/infra/storage/postgres"
)

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "List recent transport attempts from the audit trail",
	Run:   runAttempts,
}

func init() {
	attemptsCmd.Flags().IntVarP(&attemptsLimit, "limit", "n", 20, "number of attempts to show")
	rootCmd.AddCommand(attemptsCmd)
}

func runAttempts(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("database.url is not set, audit trail is disabled")
		os.Exit(1)
	}

	db, err := postgres.NewDB(context.Background(), cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to audit db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := postgres.NewAuditRepo(db).RecentAttempts(cmd.Context(), attemptsLimit)
	if err != nil {
		slog.Error("Failed to list attempts", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tREQUEST\tATTEMPT\tMETHOD\tPATH\tSTATUS\tFAILURE\tLATENCY")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\t%dms\n",
			row.StartedAt.Format("2006-01-02 15:04:05"),
			row.RequestID, row.Attempt, row.Method, row.Path,
			row.StatusCode, row.FailureKind, row.LatencyMs)
	}
	_ = w.Flush()
}

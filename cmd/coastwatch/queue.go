package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/coastwatch/internal/logging"
	"github.com/mr1hm/coastwatch/internal/repository"
)

var markSynced string

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List reports queued while offline",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		db, err := repository.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			logging.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		if err := listQueue(context.Background(), cmd.OutOrStdout(), db, markSynced); err != nil {
			logging.Fatalf("%v", err)
		}
	},
}

func init() {
	queueCmd.Flags().StringVar(&markSynced, "mark-synced", "", "Mark the queued entry with this id as synced.")
}

// listQueue prints the offline queue, first marking markID synced when set.
func listQueue(ctx context.Context, out io.Writer, q repository.OfflineQueue, markID string) error {
	if markID != "" {
		ok, err := q.MarkSynced(ctx, markID)
		if err != nil {
			return fmt.Errorf("failed to mark %s synced: %w", markID, err)
		}
		if !ok {
			return fmt.Errorf("no unsynced entry %s", markID)
		}
	}

	entries, err := q.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read offline queue: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCAPTURED\tSYNCED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%t\n", e.ID, e.CapturedAt.UTC().Format(time.RFC3339), e.Synced)
	}
	return w.Flush()
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mr1hm/coastwatch/internal/fixtures"
	"github.com/mr1hm/coastwatch/internal/ingestion"
	"github.com/mr1hm/coastwatch/internal/logging"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/repository"
	"github.com/mr1hm/coastwatch/internal/stream"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample hazard reports into the database",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		db, err := repository.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			logging.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		clock := clockwork.NewRealClock()
		mgr := ingestion.NewManager(cfg, db, stream.NewBroadcaster(0), observability.NewMetrics(), clock)

		if err := seedHazards(context.Background(), cmd.OutOrStdout(), mgr, clock); err != nil {
			logging.Fatalf("Failed to seed hazards: %v", err)
		}
	},
}

func seedHazards(ctx context.Context, out io.Writer, mgr *ingestion.Manager, clock clockwork.Clock) error {
	added, err := mgr.Seed(ctx, fixtures.Reports(clock.Now()))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "added %d hazard reports\n", added)
	return nil
}

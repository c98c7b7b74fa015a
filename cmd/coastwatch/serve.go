package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/mr1hm/coastwatch/internal/api"
	"github.com/mr1hm/coastwatch/internal/dashboard"
	"github.com/mr1hm/coastwatch/internal/fixtures"
	"github.com/mr1hm/coastwatch/internal/ingestion"
	"github.com/mr1hm/coastwatch/internal/live"
	"github.com/mr1hm/coastwatch/internal/logging"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/report"
	"github.com/mr1hm/coastwatch/internal/repository"
	"github.com/mr1hm/coastwatch/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API and live map stream",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func serve() {
	cfg := loadConfig()
	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	broadcaster := stream.NewBroadcaster(cfg.Stream.SubscriberBuffer)
	broadcaster.OnDrop(metrics.BroadcastDropped.Inc)

	mgr := ingestion.NewManager(cfg, db, broadcaster, metrics, clock)
	mgr.Start(ctx)

	now := clock.Now()
	overlays := dashboard.Overlays{
		Stations: fixtures.Stations(now),
		Routes:   fixtures.EvacuationRoutes(),
		Zones:    fixtures.DensityZones(),
	}
	if cfg.Seed.Enabled {
		if _, err := mgr.Seed(ctx, fixtures.Reports(now)); err != nil {
			logging.Fatalf("Failed to seed hazards: %v", err)
		}
	}

	drafts := report.NewRegistry(clock, cfg.Report.DraftIdleTTL, metrics)
	var sweeper sync.WaitGroup
	sweeper.Add(1)
	go func() {
		defer sweeper.Done()
		drafts.Run(ctx, cfg.Report.SweepInterval)
	}()

	hub := live.NewHub(db, overlays, broadcaster, clock, metrics, cfg.Server.AllowedOrigins)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(api.Deps{
		Repo:      db,
		Queue:     db,
		Drafts:    drafts,
		Finalizer: report.NewFinalizer(db, mgr, clock, cfg.Report.SubmitDelay, metrics),
		Overlays:  overlays,
		Clock:     clock,
		Metrics:   metrics,
		DB:        db,
		Live:      hub,
	})
	router := api.NewRouter(cfg, handler)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	sweeper.Wait()
	mgr.Stop()
	if err := hub.Shutdown(shutdownCtx); err != nil {
		slog.Error("live sessions did not close", "error", err)
	}
	broadcaster.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/coastwatch/internal/config"
	"github.com/mr1hm/coastwatch/internal/models"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/repository"
	"github.com/mr1hm/coastwatch/internal/stream"
	"github.com/mr1hm/coastwatch/internal/worker"
)

const (
	SourceSeed   = "seed"
	SourceReport = "report"
	SourceFeed   = "feed"
)

type Job struct {
	Record models.HazardRecord
	Source string
}

// Manager stores incoming hazard records and publishes new ones to live
// subscribers. Submitted reports are stored inline; feed records go through
// the worker pool.
type Manager struct {
	cfg         *config.Config
	repo        repository.HazardRepository
	broadcaster *stream.Broadcaster
	metrics     *observability.Metrics
	clock       clockwork.Clock
	client      *http.Client
	pool        *worker.Pool[Job]
	wg          sync.WaitGroup
}

func NewManager(cfg *config.Config, repo repository.HazardRepository, broadcaster *stream.Broadcaster, metrics *observability.Metrics, clock clockwork.Clock) *Manager {
	return &Manager{
		cfg:         cfg,
		repo:        repo,
		broadcaster: broadcaster,
		metrics:     metrics,
		clock:       clock,
		client: &http.Client{
			Timeout: cfg.Feed.Timeout,
		},
	}
}

func (m *Manager) process(ctx context.Context, job Job) error {
	r := job.Record

	exists, err := m.repo.Exists(ctx, r.ID)
	if err != nil {
		slog.Error("error checking existence", "id", r.ID, "error", err)
		m.metrics.IngestErrors.Inc()
		return err
	}
	if exists {
		return nil
	}

	if err := m.repo.Add(ctx, &r); err != nil {
		slog.Error("error adding hazard", "id", r.ID, "error", err)
		m.metrics.IngestErrors.Inc()
		return err
	}
	m.metrics.HazardsIngested.WithLabelValues(job.Source).Inc()

	if m.broadcaster != nil {
		m.broadcaster.Broadcast(r)
	}

	slog.Info("added hazard", "id", r.ID, "type", r.Type.String(), "severity", r.Severity.String(), "source", job.Source)
	return nil
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewPool("ingestion", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.process)
	m.pool.Start(ctx)

	if m.cfg.Feed.Enabled {
		m.wg.Add(1)
		go m.runPoller(ctx, m.cfg.Feed.URL, m.cfg.Feed.PollInterval)
	}
}

// Write stores a submitted report and publishes it.
func (m *Manager) Write(ctx context.Context, r models.HazardRecord) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid report %q: %w", r.ID, err)
	}
	return m.process(ctx, Job{Record: r, Source: SourceReport})
}

// Seed stores records that are not already present. It returns how many
// were added.
func (m *Manager) Seed(ctx context.Context, records []models.HazardRecord) (int, error) {
	added := 0
	for _, r := range records {
		exists, err := m.repo.Exists(ctx, r.ID)
		if err != nil {
			return added, fmt.Errorf("seeding %q: %w", r.ID, err)
		}
		if exists {
			continue
		}
		if err := m.process(ctx, Job{Record: r, Source: SourceSeed}); err != nil {
			return added, fmt.Errorf("seeding %q: %w", r.ID, err)
		}
		added++
	}
	slog.Info("seeded hazards", "added", added, "total", len(records))
	return added, nil
}

func (m *Manager) runPoller(ctx context.Context, url string, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting feed poller", "url", url, "interval", interval)

	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	// Initial poll
	m.poll(ctx, url)

	for {
		select {
		case <-ctx.Done():
			slog.Info("feed poller shutting down")
			return
		case <-ticker.Chan():
			m.poll(ctx, url)
		}
	}
}

func (m *Manager) poll(ctx context.Context, url string) {
	slog.Debug("polling feed", "url", url)

	records, err := m.fetchFeed(ctx, url)
	if err != nil {
		m.metrics.FeedPolls.WithLabelValues("error").Inc()
		slog.Error("feed poll failed", "url", url, "error", err)
		return
	}
	m.metrics.FeedPolls.WithLabelValues("success").Inc()

	for _, r := range records {
		if err := m.pool.Submit(ctx, Job{Record: r, Source: SourceFeed}); err != nil {
			slog.Warn("dropping feed record", "id", r.ID, "error", err)
			return
		}
	}

	slog.Debug("feed poll complete", "count", len(records))
}

func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	m.client.CloseIdleConnections()
	slog.Info("ingestion manager stopped")
}

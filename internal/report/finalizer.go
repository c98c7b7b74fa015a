package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/coastwatch/internal/models"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/repository"
)

var (
	ErrNotReady             = errors.New("draft is not ready for submission")
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// RemoteWriter accepts submitted reports.
type RemoteWriter interface {
	Write(ctx context.Context, r models.HazardRecord) error
}

type Outcome struct {
	Step     Step      `json:"step"`
	RecordID string    `json:"record_id,omitempty"`
	QueueID  string    `json:"queue_id,omitempty"`
	At       time.Time `json:"at"`
}

// Finalizer turns reviewed drafts into submissions, or queues them when the
// client is offline.
type Finalizer struct {
	queue   repository.OfflineQueue
	remote  RemoteWriter
	clock   clockwork.Clock
	delay   time.Duration
	metrics *observability.Metrics

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewFinalizer(queue repository.OfflineQueue, remote RemoteWriter, clock clockwork.Clock, delay time.Duration, metrics *observability.Metrics) *Finalizer {
	return &Finalizer{
		queue:    queue,
		remote:   remote,
		clock:    clock,
		delay:    delay,
		metrics:  metrics,
		inFlight: make(map[string]struct{}),
	}
}

func (f *Finalizer) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.inFlight[id]; busy {
		return false
	}
	f.inFlight[id] = struct{}{}
	return true
}

func (f *Finalizer) release(id string) {
	f.mu.Lock()
	delete(f.inFlight, id)
	f.mu.Unlock()
}

// InFlight reports whether a submission for the draft is running.
func (f *Finalizer) InFlight(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, busy := f.inFlight[id]
	return busy
}

// Finalize submits d, which must be at the review step. The simulated
// network delay cannot be cancelled: once started, the call always ends with
// d either submitted or queued, unless the queue itself fails. In both
// terminal cases the draft's fields are cleared.
//
// A remote write failure falls back to the offline queue.
func (f *Finalizer) Finalize(ctx context.Context, d *Draft, online bool) (Outcome, error) {
	if d.Step != StepReview {
		return Outcome{}, fmt.Errorf("%w: draft is at %s", ErrNotReady, d.Step)
	}
	if !f.acquire(d.ID) {
		return Outcome{}, ErrSubmissionInProgress
	}
	defer f.release(d.ID)

	start := f.clock.Now()
	defer func() {
		f.metrics.SubmitDuration.Observe(f.clock.Since(start).Seconds())
	}()

	ctx = context.WithoutCancel(ctx)
	if f.delay > 0 {
		<-f.clock.After(f.delay)
	}

	if online {
		out, err := f.submit(ctx, d)
		if err == nil {
			f.metrics.ReportsFinalized.WithLabelValues("submitted").Inc()
			return out, nil
		}
		slog.Warn("remote write failed, queueing report offline", "draft", d.ID, "error", err)
	}

	out, err := f.enqueue(ctx, d)
	if err != nil {
		f.metrics.ReportsFinalized.WithLabelValues("error").Inc()
		return Outcome{}, err
	}
	f.metrics.ReportsFinalized.WithLabelValues("queued").Inc()
	return out, nil
}

func (f *Finalizer) submit(ctx context.Context, d *Draft) (Outcome, error) {
	now := f.clock.Now()
	rec := d.Record(uuid.NewString(), now)
	if err := rec.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("draft %s: %w", d.ID, err)
	}
	if err := f.remote.Write(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("writing report %s: %w", rec.ID, err)
	}

	d.finish(StepSubmitted)
	slog.Info("report submitted", "draft", d.ID, "record", rec.ID, "type", rec.Type.String())
	return Outcome{Step: StepSubmitted, RecordID: rec.ID, At: now}, nil
}

func (f *Finalizer) enqueue(ctx context.Context, d *Draft) (Outcome, error) {
	now := f.clock.Now()
	snapshot := d.Clone()
	snapshot.Step = StepQueuedOffline
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding draft %s: %w", d.ID, err)
	}

	q := repository.QueuedReport{
		ID:         uuid.NewString(),
		CapturedAt: now,
		Synced:     false,
		Draft:      payload,
	}
	if err := f.queue.Append(ctx, q); err != nil {
		return Outcome{}, fmt.Errorf("queueing draft %s: %w", d.ID, err)
	}

	d.finish(StepQueuedOffline)
	slog.Info("report queued offline", "draft", d.ID, "queue_id", q.ID)
	return Outcome{Step: StepQueuedOffline, QueueID: q.ID, At: now}, nil
}

package report

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/coastwatch/internal/models"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memQueue struct {
	mu      sync.Mutex
	entries []repository.QueuedReport
	err     error
}

func (q *memQueue) Append(_ context.Context, r repository.QueuedReport) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.entries = append(q.entries, r)
	return nil
}

func (q *memQueue) ReadAll(context.Context) ([]repository.QueuedReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]repository.QueuedReport{}, q.entries...), nil
}

func (q *memQueue) MarkSynced(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id && !q.entries[i].Synced {
			q.entries[i].Synced = true
			return true, nil
		}
	}
	return false, nil
}

type fakeRemote struct {
	mu      sync.Mutex
	written []models.HazardRecord
	err     error
}

func (r *fakeRemote) Write(_ context.Context, rec models.HazardRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.written = append(r.written, rec)
	return nil
}

func newTestFinalizer(delay time.Duration) (*Finalizer, *memQueue, *fakeRemote, *clockwork.FakeClock, *observability.Metrics) {
	q := &memQueue{}
	remote := &fakeRemote{}
	clock := clockwork.NewFakeClockAt(t0)
	metrics := observability.NewMetricsForTesting()
	return NewFinalizer(q, remote, clock, delay, metrics), q, remote, clock, metrics
}

func TestFinalizeOfflineQueuesDraft(t *testing.T) {
	f, q, remote, _, metrics := newTestFinalizer(0)
	d := readyDraft(t)
	before, _ := q.ReadAll(context.Background())

	out, err := f.Finalize(context.Background(), d, false)
	require.NoError(t, err)

	after, _ := q.ReadAll(context.Background())
	require.Len(t, after, len(before)+1)
	entry := after[len(after)-1]
	assert.False(t, entry.Synced)
	assert.Equal(t, out.QueueID, entry.ID)
	assert.True(t, entry.CapturedAt.Equal(t0))

	var snap Draft
	require.NoError(t, json.Unmarshal(entry.Draft, &snap))
	assert.Equal(t, "strong pull near the groyne", snap.Description)
	assert.Equal(t, models.HazardTypeRipCurrent, snap.HazardType)

	assert.Equal(t, StepQueuedOffline, out.Step)
	assert.Equal(t, StepQueuedOffline, d.Step)
	assert.Empty(t, d.Description)
	assert.Empty(t, d.ReporterName)
	assert.Nil(t, d.Location)
	assert.Empty(t, remote.written)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReportsFinalized.WithLabelValues("queued")))
}

func TestFinalizeOnlineWritesRecord(t *testing.T) {
	f, q, remote, _, metrics := newTestFinalizer(0)
	d := readyDraft(t)

	out, err := f.Finalize(context.Background(), d, true)
	require.NoError(t, err)

	require.Len(t, remote.written, 1)
	rec := remote.written[0]
	assert.Equal(t, out.RecordID, rec.ID)
	assert.Equal(t, "Asha", rec.Reporter)
	assert.Equal(t, models.SeverityHigh, rec.Severity)
	assert.True(t, rec.Timestamp.Equal(t0))

	assert.Equal(t, StepSubmitted, d.Step)
	assert.Empty(t, d.Description)
	assert.Empty(t, q.entries)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReportsFinalized.WithLabelValues("submitted")))
}

func TestFinalizeRemoteFailureFallsBackToQueue(t *testing.T) {
	f, q, remote, _, _ := newTestFinalizer(0)
	remote.err = errors.New("connection reset")
	d := readyDraft(t)

	out, err := f.Finalize(context.Background(), d, true)
	require.NoError(t, err)
	assert.Equal(t, StepQueuedOffline, out.Step)
	assert.Len(t, q.entries, 1)
}

func TestFinalizeQueueFailureKeepsDraft(t *testing.T) {
	f, q, _, _, metrics := newTestFinalizer(0)
	q.err = errors.New("disk full")
	d := readyDraft(t)

	_, err := f.Finalize(context.Background(), d, false)
	require.Error(t, err)
	assert.Equal(t, StepReview, d.Step)
	assert.Equal(t, "strong pull near the groyne", d.Description)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReportsFinalized.WithLabelValues("error")))
}

func TestFinalizeRequiresReview(t *testing.T) {
	f, q, _, _, _ := newTestFinalizer(0)
	d := NewDraft("d", t0)

	_, err := f.Finalize(context.Background(), d, false)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, q.entries)
	assert.Equal(t, StepLocation, d.Step)
}

func TestFinalizeRejectsConcurrentSubmission(t *testing.T) {
	f, q, _, clock, _ := newTestFinalizer(1500 * time.Millisecond)
	d := readyDraft(t)
	dup := d.Clone()

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := f.Finalize(context.Background(), d, false)
		done <- result{out, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.True(t, f.InFlight(d.ID))

	_, err := f.Finalize(context.Background(), dup, false)
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	clock.Advance(1500 * time.Millisecond)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, StepQueuedOffline, res.out.Step)
	assert.Len(t, q.entries, 1)
	assert.False(t, f.InFlight(d.ID))
}

func TestFinalizeDelayIgnoresCancellation(t *testing.T) {
	f, q, _, clock, _ := newTestFinalizer(time.Second)
	d := readyDraft(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Finalize(ctx, d, false)
		done <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()
	clock.Advance(time.Second)

	require.NoError(t, <-done)
	assert.Len(t, q.entries, 1)
	assert.Equal(t, StepQueuedOffline, d.Step)
}

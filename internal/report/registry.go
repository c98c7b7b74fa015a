package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/coastwatch/internal/observability"
)

// DefaultIdleTTL is how long an untouched draft is kept.
const DefaultIdleTTL = 30 * time.Minute

type entry struct {
	draft      *Draft
	touched    time.Time
	submitting bool
}

// Registry holds open drafts by id. Callers only ever see copies; changes go
// through Update or Submit so each draft has a single writer at a time.
type Registry struct {
	mu      sync.Mutex
	drafts  map[string]*entry
	clock   clockwork.Clock
	idleTTL time.Duration
	metrics *observability.Metrics
}

// NewRegistry keeps drafts until they have been idle for idleTTL. metrics
// may be nil.
func NewRegistry(clock clockwork.Clock, idleTTL time.Duration, metrics *observability.Metrics) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		drafts:  make(map[string]*entry),
		clock:   clock,
		idleTTL: idleTTL,
		metrics: metrics,
	}
}

// Create starts a new draft at the location step.
func (r *Registry) Create() *Draft {
	now := r.clock.Now()
	d := NewDraft(uuid.NewString(), now)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[d.ID] = &entry{draft: d, touched: now}
	r.track()

	return d.Clone()
}

func (r *Registry) Get(id string) (*Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return e.draft.Clone(), nil
}

// Update runs fn on the stored draft under the registry lock and returns a
// copy of the result. fn's error is returned as is; fn is responsible for
// not leaving the draft half-modified. Drafts being submitted are not
// editable.
func (r *Registry) Update(id string, fn func(d *Draft) error) (*Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if e.submitting {
		return e.draft.Clone(), ErrSubmissionInProgress
	}
	e.touched = r.clock.Now()
	if err := fn(e.draft); err != nil {
		return e.draft.Clone(), err
	}
	return e.draft.Clone(), nil
}

// Submit marks the draft as submitting and runs fn on a copy without
// holding the lock, so fn may block. While fn runs, Update and a second
// Submit fail with ErrSubmissionInProgress. On success the copy replaces
// the stored draft, unless the draft was discarded meanwhile.
func (r *Registry) Submit(id string, fn func(d *Draft) error) (*Draft, error) {
	r.mu.Lock()
	e, ok := r.drafts[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrDraftNotFound
	}
	if e.submitting {
		r.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	e.submitting = true
	e.touched = r.clock.Now()
	d := e.draft.Clone()
	r.mu.Unlock()

	err := fn(d)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.drafts[id]; ok && cur == e {
		e.submitting = false
		e.touched = r.clock.Now()
		if err == nil {
			e.draft = d.Clone()
		}
	}
	if err != nil {
		return e.draft.Clone(), err
	}
	return d, nil
}

// Submitting reports whether a submission of the draft is running.
func (r *Registry) Submitting(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.drafts[id]
	return ok && e.submitting
}

// Discard drops a draft. Nothing is persisted.
func (r *Registry) Discard(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drafts[id]; !ok {
		return false
	}
	delete(r.drafts, id)
	r.track()
	return true
}

// Sweep drops drafts untouched for longer than the idle TTL and returns how
// many went. Drafts being submitted are kept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock.Now().Add(-r.idleTTL)
	n := 0
	for id, e := range r.drafts {
		if !e.submitting && e.touched.Before(cutoff) {
			delete(r.drafts, id)
			n++
		}
	}
	if n > 0 {
		r.track()
	}
	return n
}

// Run sweeps idle drafts every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := r.Sweep(); n > 0 {
				slog.Info("expired idle drafts", "count", n)
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

// track must be called with mu held.
func (r *Registry) track() {
	if r.metrics != nil {
		r.metrics.DraftsOpen.Set(float64(len(r.drafts)))
	}
}

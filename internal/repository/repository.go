package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mr1hm/coastwatch/internal/models"
)

type Filter struct {
	Limit  int
	Offset int
	Since  *time.Time // only records reported at or after this time
}

// HazardRepository stores hazard records. Records are immutable: there is
// no update or delete.
type HazardRepository interface {
	Add(ctx context.Context, r *models.HazardRecord) error
	// GetByID returns nil, nil when no record has the id.
	GetByID(ctx context.Context, id string) (*models.HazardRecord, error)
	Exists(ctx context.Context, id string) (bool, error)
	// ListHazards returns records newest first.
	ListHazards(ctx context.Context, opts Filter) ([]models.HazardRecord, error)
}

// QueuedReport is a report draft captured while offline, waiting to be
// synced to the server.
type QueuedReport struct {
	ID         string          `json:"id"`
	CapturedAt time.Time       `json:"captured_at"`
	Synced     bool            `json:"synced"`
	Draft      json.RawMessage `json:"draft"`
}

// OfflineQueue is an append-only list of queued reports.
type OfflineQueue interface {
	Append(ctx context.Context, q QueuedReport) error
	// ReadAll returns entries in capture order.
	ReadAll(ctx context.Context) ([]QueuedReport, error)
	// MarkSynced reports false when the id is unknown or already synced.
	MarkSynced(ctx context.Context, id string) (bool, error)
}

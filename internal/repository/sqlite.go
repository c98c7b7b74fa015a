package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/coastwatch/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// one connection: every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS hazards (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			status TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			location TEXT NOT NULL,
			region TEXT NOT NULL,
			district TEXT NOT NULL,
			reporter TEXT NOT NULL,
			description TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			created_at_ms INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS offline_reports (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			captured_at_ms INTEGER NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0,
			draft BLOB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_hazards_timestamp ON hazards(timestamp_ms);
		CREATE INDEX IF NOT EXISTS idx_hazards_region ON hazards(region);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Add(ctx context.Context, r *models.HazardRecord) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid hazard %q: %w", r.ID, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hazards (id, title, type, severity, status, latitude, longitude,
			location, region, district, reporter, description, timestamp_ms, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Type.String(), r.Severity.String(), r.Status.String(),
		r.Coordinates.Lat, r.Coordinates.Lng, r.Location, r.Region, r.District,
		r.Reporter, r.Description, r.Timestamp.UnixMilli(), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error inserting hazard %q: %w", r.ID, err)
	}
	return nil
}

const hazardColumns = `id, title, type, severity, status, latitude, longitude,
	location, region, district, reporter, description, timestamp_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHazard(row rowScanner) (*models.HazardRecord, error) {
	var (
		r                    models.HazardRecord
		typ, severity, state string
		tsMillis             int64
	)
	err := row.Scan(&r.ID, &r.Title, &typ, &severity, &state,
		&r.Coordinates.Lat, &r.Coordinates.Lng, &r.Location, &r.Region,
		&r.District, &r.Reporter, &r.Description, &tsMillis)
	if err != nil {
		return nil, err
	}
	if r.Type, err = models.ParseHazardType(typ); err != nil {
		return nil, fmt.Errorf("hazard %q: %w", r.ID, err)
	}
	if r.Severity, err = models.ParseSeverity(severity); err != nil {
		return nil, fmt.Errorf("hazard %q: %w", r.ID, err)
	}
	if r.Status, err = models.ParseStatus(state); err != nil {
		return nil, fmt.Errorf("hazard %q: %w", r.ID, err)
	}
	r.Timestamp = time.UnixMilli(tsMillis).UTC()
	return &r, nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.HazardRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hazardColumns+` FROM hazards WHERE id = ?`, id)
	r, err := scanHazard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting hazard %q: %w", id, err)
	}
	return r, nil
}

func (s *SQLiteDB) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM hazards WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error checking hazard %q: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteDB) ListHazards(ctx context.Context, opts Filter) ([]models.HazardRecord, error) {
	query := `SELECT ` + hazardColumns + ` FROM hazards`
	var args []any
	if opts.Since != nil {
		query += ` WHERE timestamp_ms >= ?`
		args = append(args, opts.Since.UnixMilli())
	}
	query += ` ORDER BY timestamp_ms DESC, id ASC`

	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // no limit
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing hazards: %w", err)
	}
	defer rows.Close()

	hazards := []models.HazardRecord{}
	for rows.Next() {
		r, err := scanHazard(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning hazard: %w", err)
		}
		hazards = append(hazards, *r)
	}
	return hazards, rows.Err()
}

func (s *SQLiteDB) Append(ctx context.Context, q QueuedReport) error {
	if q.ID == "" {
		return errors.New("queued report id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offline_reports (id, captured_at_ms, synced, draft) VALUES (?, ?, ?, ?)`,
		q.ID, q.CapturedAt.UnixMilli(), q.Synced, []byte(q.Draft),
	)
	if err != nil {
		return fmt.Errorf("error queueing report %q: %w", q.ID, err)
	}
	return nil
}

func (s *SQLiteDB) ReadAll(ctx context.Context) ([]QueuedReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, captured_at_ms, synced, draft FROM offline_reports ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("error reading offline queue: %w", err)
	}
	defer rows.Close()

	queued := []QueuedReport{}
	for rows.Next() {
		var (
			q          QueuedReport
			capturedMs int64
			draft      []byte
		)
		if err := rows.Scan(&q.ID, &capturedMs, &q.Synced, &draft); err != nil {
			return nil, fmt.Errorf("error scanning queued report: %w", err)
		}
		q.CapturedAt = time.UnixMilli(capturedMs).UTC()
		q.Draft = draft
		queued = append(queued, q)
	}
	return queued, rows.Err()
}

func (s *SQLiteDB) MarkSynced(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE offline_reports SET synced = 1 WHERE id = ? AND synced = 0`, id)
	if err != nil {
		return false, fmt.Errorf("error marking %q synced: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

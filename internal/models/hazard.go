package models

import (
	"errors"
	"fmt"
	"time"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether c lies within WGS84 degree ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// String formats c the way the report form labels a picked point.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

type HazardRecord struct {
	ID          string      `json:"id"` // e.g. "HR-2024-001"
	Title       string      `json:"title"`
	Type        HazardType  `json:"type"`
	Severity    Severity    `json:"severity"`
	Status      Status      `json:"status"`
	Coordinates Coordinates `json:"coordinates"`
	Location    string      `json:"location"` // place name, "Marina Beach, Chennai"
	Region      string      `json:"region"`   // state or province
	District    string      `json:"district,omitempty"`
	Reporter    string      `json:"reporter"`
	Timestamp   time.Time   `json:"timestamp"` // when the report was created
	Description string      `json:"description"`
}

// Validate checks what every stored record must satisfy.
func (r *HazardRecord) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if !r.Type.Valid() {
		errs = append(errs, fmt.Errorf("invalid hazard type %d", int(r.Type)))
	}
	if !r.Severity.Valid() {
		errs = append(errs, fmt.Errorf("invalid severity %d", int(r.Severity)))
	}
	if !r.Status.Valid() {
		errs = append(errs, fmt.Errorf("invalid status %d", int(r.Status)))
	}
	if !r.Coordinates.Valid() {
		errs = append(errs, fmt.Errorf("coordinates out of range: %s", r.Coordinates))
	}
	return errors.Join(errs...)
}

// DisplayTitle falls back to the type label for records without a title.
func (r *HazardRecord) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Type.Label()
}

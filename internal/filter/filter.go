// Package filter derives the visible subset of hazard records from a filter
// state. Apply is pure: it never mutates its inputs and keeps input order.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/coastwatch/internal/models"
)

// Window bounds how old a record may be. WindowAll accepts every record.
type Window time.Duration

const (
	WindowAll     Window = 0
	WindowHour    Window = Window(time.Hour)
	WindowDay     Window = Window(24 * time.Hour)
	WindowWeek    Window = Window(7 * 24 * time.Hour)
	WindowMonth   Window = Window(30 * 24 * time.Hour)
	maxWindowDays        = 366
)

// WindowHours builds a window of n hours, as used by the map's time slider.
func WindowHours(n int) Window {
	return Window(time.Duration(n) * time.Hour)
}

func (w Window) String() string {
	switch {
	case w == WindowAll:
		return "all"
	case time.Duration(w)%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", time.Duration(w)/(24*time.Hour))
	default:
		return fmt.Sprintf("%dh", time.Duration(w)/time.Hour)
	}
}

// ParseWindow accepts "all", "" and whole hours or days: "1h", "72h", "7d".
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return WindowAll, nil
	}
	if len(s) < 2 {
		return WindowAll, fmt.Errorf("invalid time window %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return WindowAll, fmt.Errorf("invalid time window %q", s)
	}
	switch s[len(s)-1] {
	case 'h':
		if n > maxWindowDays*24 {
			return WindowAll, fmt.Errorf("time window %q too large", s)
		}
		return WindowHours(n), nil
	case 'd':
		if n > maxWindowDays {
			return WindowAll, fmt.Errorf("time window %q too large", s)
		}
		return Window(time.Duration(n) * 24 * time.Hour), nil
	default:
		return WindowAll, fmt.Errorf("invalid time window %q", s)
	}
}

// Dimension names one filterable slot of State.
type Dimension int

const (
	DimHazardType Dimension = iota
	DimSeverity
	DimStatus
	DimRegion
	DimSearch
	DimWindow
)

// State holds one optional predicate per dimension. The zero value matches
// every record.
type State struct {
	HazardType models.HazardType
	Severity   models.Severity
	Status     models.Status
	Region     string
	Search     string
	Window     Window
}

// Active reports whether any predicate is set.
func (s State) Active() bool {
	return s != State{}
}

// ParseDimension accepts the query parameter name of a dimension.
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "type", "hazard-type", "hazard_type":
		return DimHazardType, nil
	case "severity":
		return DimSeverity, nil
	case "status":
		return DimStatus, nil
	case "region", "state":
		return DimRegion, nil
	case "q", "search":
		return DimSearch, nil
	case "window", "time":
		return DimWindow, nil
	default:
		return 0, fmt.Errorf("unknown filter dimension %q", s)
	}
}

// Clear returns a copy of s with dimension d relaxed to match-all.
func (s State) Clear(d Dimension) State {
	switch d {
	case DimHazardType:
		s.HazardType = models.HazardTypeUnspecified
	case DimSeverity:
		s.Severity = models.SeverityUnspecified
	case DimStatus:
		s.Status = models.StatusUnspecified
	case DimRegion:
		s.Region = ""
	case DimSearch:
		s.Search = ""
	case DimWindow:
		s.Window = WindowAll
	}
	return s
}

// Matches reports whether r satisfies every active predicate of s.
func (s State) Matches(r *models.HazardRecord, now time.Time) bool {
	if s.HazardType != models.HazardTypeUnspecified && r.Type != s.HazardType {
		return false
	}
	if s.Severity != models.SeverityUnspecified && r.Severity != s.Severity {
		return false
	}
	if s.Status != models.StatusUnspecified && r.Status != s.Status {
		return false
	}
	if region := strings.TrimSpace(s.Region); region != "" && !strings.EqualFold(region, strings.TrimSpace(r.Region)) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(s.Search)); term != "" && !matchesSearch(r, term) {
		return false
	}
	if s.Window != WindowAll && now.Sub(r.Timestamp) > time.Duration(s.Window) {
		return false
	}
	return true
}

// term must already be lowercased.
func matchesSearch(r *models.HazardRecord, term string) bool {
	for _, field := range []string{r.Title, r.Type.Label(), r.Type.String(), r.Location, r.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Apply returns the records that satisfy s, in input order. The result is
// a fresh slice; an empty input or a fully excluding state yields an empty,
// non-nil slice.
func Apply(records []models.HazardRecord, s State, now time.Time) []models.HazardRecord {
	visible := make([]models.HazardRecord, 0, len(records))
	for i := range records {
		if s.Matches(&records[i], now) {
			visible = append(visible, records[i])
		}
	}
	return visible
}

// Query is the wire form of State, bound from URL query parameters or JSON.
type Query struct {
	Type     string `form:"type" json:"type,omitempty"`
	Severity string `form:"severity" json:"severity,omitempty"`
	Status   string `form:"status" json:"status,omitempty"`
	Region   string `form:"region" json:"region,omitempty"`
	Search   string `form:"q" json:"q,omitempty"`
	Window   string `form:"window" json:"window,omitempty"`
}

// isAll reports whether v is the "no filter" sentinel.
func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// State converts q to a State. Unknown enum values are rejected rather than
// silently treated as match-all.
func (q Query) State() (State, error) {
	var (
		s    State
		errs []error
		err  error
	)
	if !isAll(q.Type) {
		if s.HazardType, err = models.ParseHazardType(q.Type); err != nil {
			errs = append(errs, err)
		}
	}
	if !isAll(q.Severity) {
		if s.Severity, err = models.ParseSeverity(q.Severity); err != nil {
			errs = append(errs, err)
		}
	}
	if !isAll(q.Status) {
		if s.Status, err = models.ParseStatus(q.Status); err != nil {
			errs = append(errs, err)
		}
	}
	if !isAll(q.Region) {
		s.Region = strings.TrimSpace(q.Region)
	}
	s.Search = strings.TrimSpace(q.Search)
	if s.Window, err = ParseWindow(q.Window); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return State{}, errors.Join(errs...)
	}
	return s, nil
}

// Query converts s back to its wire form.
func (s State) Query() Query {
	var q Query
	if s.HazardType.Valid() {
		q.Type = s.HazardType.String()
	}
	if s.Severity.Valid() {
		q.Severity = s.Severity.String()
	}
	if s.Status.Valid() {
		q.Status = s.Status.String()
	}
	q.Region = s.Region
	q.Search = s.Search
	if s.Window != WindowAll {
		q.Window = s.Window.String()
	}
	return q
}

// ParseState builds a State from URL query parameters.
func ParseState(v url.Values) (State, error) {
	return Query{
		Type:     v.Get("type"),
		Severity: v.Get("severity"),
		Status:   v.Get("status"),
		Region:   v.Get("region"),
		Search:   v.Get("q"),
		Window:   v.Get("window"),
	}.State()
}

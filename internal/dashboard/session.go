// Package dashboard holds the state of one dashboard page: the hazard
// records it knows about, the active filters, layer visibility and the base
// map style. Every mutation recomputes the visible set and reconciles the
// map synchronously. A Session has a single owner and is not safe for
// concurrent use.
package dashboard

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/coastwatch/internal/filter"
	"github.com/mr1hm/coastwatch/internal/layers"
	"github.com/mr1hm/coastwatch/internal/mapview"
	"github.com/mr1hm/coastwatch/internal/models"
)

var ErrDuplicateRecord = errors.New("duplicate hazard record")

// Overlays is the non-report content of the map.
type Overlays struct {
	Stations []models.WeatherStation
	Routes   []models.EvacuationRoute
	Zones    []models.DensityZone
}

// View is the derived, render-ready slice of session state.
type View struct {
	Records []models.HazardRecord `json:"records"`
	Count   int                   `json:"count"`
	Total   int                   `json:"total"`
	Empty   bool                  `json:"empty"`
	Filters filter.Query          `json:"filters"`
}

type Session struct {
	clock    clockwork.Clock
	records  []models.HazardRecord
	ids      map[string]struct{}
	overlays Overlays
	filters  filter.State
	layers   *layers.Controller
	style    mapview.BaseStyle
	adapter  *mapview.Adapter

	visible  []models.HazardRecord
	lastDiff mapview.Diff
}

// NewSession copies records and draws the initial map on r.
func NewSession(records []models.HazardRecord, overlays Overlays, r mapview.Renderer, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Session{
		clock:    clock,
		records:  make([]models.HazardRecord, 0, len(records)),
		ids:      make(map[string]struct{}, len(records)),
		overlays: overlays,
		layers:   layers.NewController(),
		style:    mapview.StyleStreet,
		adapter:  mapview.NewAdapter(r),
	}
	for _, rec := range records {
		if _, dup := s.ids[rec.ID]; dup {
			continue
		}
		s.ids[rec.ID] = struct{}{}
		s.records = append(s.records, rec)
	}
	s.layers.Subscribe(func(layers.Layer, bool) {
		s.lastDiff = s.reconcile()
	})
	s.refresh()
	return s
}

func (s *Session) Adapter() *mapview.Adapter {
	return s.adapter
}

func (s *Session) Filters() filter.State {
	return s.filters
}

func (s *Session) Layers() layers.State {
	return s.layers.Snapshot()
}

func (s *Session) Style() mapview.BaseStyle {
	return s.style
}

// SetFilters replaces the whole filter state.
func (s *Session) SetFilters(f filter.State) mapview.Diff {
	s.filters = f
	return s.refresh()
}

// ClearFilter relaxes a single dimension to match-all.
func (s *Session) ClearFilter(d filter.Dimension) mapview.Diff {
	s.filters = s.filters.Clear(d)
	return s.refresh()
}

func (s *Session) ClearFilters() mapview.Diff {
	s.filters = filter.State{}
	return s.refresh()
}

// ToggleLayer flips one layer; the map reconciles through the layer
// subscription, which leaves every other layer untouched.
func (s *Session) ToggleLayer(l layers.Layer) (bool, mapview.Diff, error) {
	s.lastDiff = mapview.Diff{}
	visible, err := s.layers.Toggle(l)
	if err != nil {
		return false, mapview.Diff{}, err
	}
	return visible, s.lastDiff, nil
}

func (s *Session) SetBaseStyle(style mapview.BaseStyle) mapview.Diff {
	s.style = style
	return s.reconcile()
}

// AddRecord appends a newly reported hazard to the session's store.
func (s *Session) AddRecord(r models.HazardRecord) (mapview.Diff, error) {
	if err := r.Validate(); err != nil {
		return mapview.Diff{}, fmt.Errorf("invalid record: %w", err)
	}
	if _, dup := s.ids[r.ID]; dup {
		return mapview.Diff{}, fmt.Errorf("%w: %s", ErrDuplicateRecord, r.ID)
	}
	s.ids[r.ID] = struct{}{}
	s.records = append(s.records, r)
	return s.refresh(), nil
}

// Refresh recomputes the visible set against the current time, so records
// age out of a time window without any other change.
func (s *Session) Refresh() mapview.Diff {
	return s.refresh()
}

// Record looks up any known record, visible or not.
func (s *Session) Record(id string) (models.HazardRecord, bool) {
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.HazardRecord{}, false
}

// Records returns every record the session knows, in insertion order.
func (s *Session) Records() []models.HazardRecord {
	out := make([]models.HazardRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Session) View() View {
	visible := make([]models.HazardRecord, len(s.visible))
	copy(visible, s.visible)
	return View{
		Records: visible,
		Count:   len(visible),
		Total:   len(s.records),
		Empty:   len(visible) == 0,
		Filters: s.filters.Query(),
	}
}

func (s *Session) Stats() Stats {
	return Summarize(s.records, s.overlays.Stations)
}

func (s *Session) refresh() mapview.Diff {
	s.visible = filter.Apply(s.records, s.filters, s.clock.Now())
	return s.reconcile()
}

func (s *Session) reconcile() mapview.Diff {
	return s.adapter.Reconcile(mapview.Scene{
		Hazards:  s.visible,
		Stations: s.overlays.Stations,
		Routes:   s.overlays.Routes,
		Zones:    s.overlays.Zones,
		Layers:   s.layers.Snapshot(),
		Style:    s.style,
	})
}

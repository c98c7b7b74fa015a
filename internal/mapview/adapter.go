// Package mapview reconciles dashboard state into map markers. The Adapter
// keeps the set of markers it has drawn and, on every Reconcile, sends a
// Renderer only the difference between that set and the desired one.
package mapview

import (
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/mr1hm/coastwatch/internal/layers"
	"github.com/mr1hm/coastwatch/internal/models"
)

// Renderer draws markers. Implementations translate calls into a concrete
// map: GeoJSON collections, WebSocket messages, or a test recorder.
type Renderer interface {
	AddMarker(m Marker)
	RemoveMarker(layer layers.Layer, id string)
	SetBaseStyle(style BaseStyle)
}

// Scene is everything the map should currently show.
type Scene struct {
	Hazards  []models.HazardRecord // the visible set, already filtered
	Stations []models.WeatherStation
	Routes   []models.EvacuationRoute
	Zones    []models.DensityZone
	Layers   layers.State
	Style    BaseStyle
}

// Diff counts the renderer calls one Reconcile made.
type Diff struct {
	Added        int
	Removed      int
	StyleChanged bool
}

func (d Diff) Empty() bool {
	return d.Added == 0 && d.Removed == 0 && !d.StyleChanged
}

type Adapter struct {
	renderer Renderer
	drawn    map[layers.Layer]map[string]Marker
	order    map[layers.Layer][]string
	style    BaseStyle

	onMarkerClick func(id string)
	onMapClick    func(lat, lng float64)
}

func NewAdapter(r Renderer) *Adapter {
	a := &Adapter{
		renderer: r,
		drawn:    make(map[layers.Layer]map[string]Marker, len(layers.All)),
		order:    make(map[layers.Layer][]string, len(layers.All)),
	}
	for _, l := range layers.All {
		a.drawn[l] = make(map[string]Marker)
	}
	return a
}

// OnMarkerClick sets the single callback that receives clicked marker IDs.
func (a *Adapter) OnMarkerClick(fn func(id string)) {
	a.onMarkerClick = fn
}

// OnMapClick sets the callback used in location-selection mode.
func (a *Adapter) OnMapClick(fn func(lat, lng float64)) {
	a.onMapClick = fn
}

// Reconcile brings the drawn markers in line with s. Layers whose desired
// set already matches get no renderer calls.
func (a *Adapter) Reconcile(s Scene) Diff {
	var d Diff
	if s.Style == "" {
		s.Style = StyleStreet
	}
	if s.Style != a.style {
		a.style = s.Style
		a.renderer.SetBaseStyle(s.Style)
		d.StyleChanged = true
	}
	for _, l := range layers.All {
		added, removed := a.reconcileLayer(l, s.candidates(l))
		d.Added += added
		d.Removed += removed
	}
	return d
}

func (a *Adapter) reconcileLayer(l layers.Layer, want []candidate) (added, removed int) {
	drawn := a.drawn[l]
	keep := make(map[string]struct{}, len(want))
	for _, c := range want {
		keep[c.id] = struct{}{}
	}

	var stale []string
	for id := range drawn {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	for _, id := range stale {
		delete(drawn, id)
		a.renderer.RemoveMarker(l, id)
		removed++
	}

	order := make([]string, 0, len(want))
	for _, c := range want {
		if _, seen := drawn[c.id]; !seen {
			m := Marker{Layer: l, ID: c.id, Feature: c.build()}
			drawn[c.id] = m
			a.renderer.AddMarker(m)
			added++
		}
		order = append(order, c.id)
	}
	if added > 0 || removed > 0 {
		a.order[l] = dedupe(order)
	}
	return added, removed
}

// dedupe drops repeated IDs, keeping the first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Markers returns the drawn markers of layer l in draw order.
func (a *Adapter) Markers(l layers.Layer) []Marker {
	ids := a.order[l]
	out := make([]Marker, 0, len(ids))
	for _, id := range ids {
		if m, ok := a.drawn[l][id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Count is the number of drawn markers across all layers.
func (a *Adapter) Count() int {
	n := 0
	for _, m := range a.drawn {
		n += len(m)
	}
	return n
}

func (a *Adapter) Style() BaseStyle {
	return a.style
}

// Click reports a marker click upward. It returns false for IDs that are
// not currently drawn.
func (a *Adapter) Click(id string) bool {
	for _, l := range layers.All {
		if _, ok := a.drawn[l][id]; ok {
			if a.onMarkerClick != nil {
				a.onMarkerClick(id)
			}
			return true
		}
	}
	return false
}

// MapClick reports a click on empty map area.
func (a *Adapter) MapClick(lat, lng float64) {
	if a.onMapClick != nil {
		a.onMapClick(lat, lng)
	}
}

// Extent is a lat/lng bounding box.
type Extent struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Bounds returns the extent of every drawn marker, for fit-to-bounds. ok
// is false when nothing is drawn.
func (a *Adapter) Bounds() (ext Extent, ok bool) {
	b := geom.NewBounds(geom.XY)
	for _, drawn := range a.drawn {
		for _, m := range drawn {
			if m.Feature == nil || m.Feature.Geometry == nil {
				continue
			}
			g := m.Feature.Geometry
			switch {
			case g.IsPoint():
				b.Extend(geom.NewPointFlat(geom.XY, g.Point[:2]))
			case g.IsLineString():
				flat := make([]float64, 0, 2*len(g.LineString))
				for _, p := range g.LineString {
					flat = append(flat, p[0], p[1])
				}
				b.Extend(geom.NewLineStringFlat(geom.XY, flat))
			}
		}
	}
	if b.IsEmpty() {
		return Extent{}, false
	}
	return Extent{
		MinLng: b.Min(0),
		MinLat: b.Min(1),
		MaxLng: b.Max(0),
		MaxLat: b.Max(1),
	}, true
}

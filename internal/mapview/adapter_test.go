package mapview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/coastwatch/internal/fixtures"
	"github.com/mr1hm/coastwatch/internal/layers"
	"github.com/mr1hm/coastwatch/internal/models"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testScene() Scene {
	return Scene{
		Hazards:  fixtures.Reports(testNow),
		Stations: fixtures.Stations(testNow),
		Routes:   fixtures.EvacuationRoutes(),
		Zones:    fixtures.DensityZones(),
		Layers:   layers.DefaultState(),
		Style:    StyleStreet,
	}
}

func TestReconcile_InitialDraw(t *testing.T) {
	rec := &Recorder{}
	a := NewAdapter(rec)

	d := a.Reconcile(testScene())

	assert.Equal(t, 6+4, d.Added)
	assert.Zero(t, d.Removed)
	assert.True(t, d.StyleChanged)
	assert.Equal(t, 6, rec.Count("add", layers.Hazards))
	assert.Equal(t, 4, rec.Count("add", layers.Weather))
	assert.Zero(t, rec.Count("add", layers.Evacuation))
	assert.Zero(t, rec.Count("add", layers.Population))
	assert.Equal(t, 1, rec.Count("style", ""))
}

func TestReconcile_IdempotentWithUnchangedState(t *testing.T) {
	rec := &Recorder{}
	a := NewAdapter(rec)
	s := testScene()
	a.Reconcile(s)
	rec.Reset()

	for i := 0; i < 3; i++ {
		d := a.Reconcile(s)
		assert.True(t, d.Empty())
	}
	assert.Empty(t, rec.Calls)
	assert.Equal(t, 10, a.Count())
}

func TestReconcile_ToggleTouchesOnlyThatLayer(t *testing.T) {
	rec := &Recorder{}
	a := NewAdapter(rec)
	s := testScene()
	a.Reconcile(s)
	rec.Reset()

	s.Layers = s.Layers.Clone()
	s.Layers[layers.Evacuation] = true
	a.Reconcile(s)

	assert.Equal(t, 2, rec.Count("add", layers.Evacuation))
	assert.Len(t, rec.Calls, 2, "no calls for hazards, weather or population")

	rec.Reset()
	s.Layers = s.Layers.Clone()
	s.Layers[layers.Weather] = false
	a.Reconcile(s)

	assert.Equal(t, 4, rec.Count("remove", layers.Weather))
	assert.Len(t, rec.Calls, 4)
	assert.Empty(t, a.Markers(layers.Weather))
}

func TestReconcile_RecordsLeavingVisibleSet(t *testing.T) {
	rec := &Recorder{}
	a := NewAdapter(rec)
	s := testScene()
	a.Reconcile(s)
	rec.Reset()

	var high []models.HazardRecord
	for _, r := range s.Hazards {
		if r.Severity == models.SeverityHigh {
			high = append(high, r)
		}
	}
	s.Hazards = high
	a.Reconcile(s)

	assert.Equal(t, 3, rec.Count("remove", layers.Hazards))
	assert.Zero(t, rec.Count("add", ""))

	var drawn []string
	for _, m := range a.Markers(layers.Hazards) {
		drawn = append(drawn, m.ID)
	}
	assert.Equal(t, []string{"HR-2024-001", "HR-2024-003", "HR-2024-006"}, drawn)
}

func TestReconcile_OneMarkerPerRecord(t *testing.T) {
	rec := &Recorder{}
	a := NewAdapter(rec)
	s := testScene()
	s.Hazards = append(s.Hazards, s.Hazards[0])

	a.Reconcile(s)

	assert.Equal(t, 6, rec.Count("add", layers.Hazards))
	assert.Len(t, a.Markers(layers.Hazards), 6)
}

func TestReconcile_StyleChange(t *testing.T) {
	rec := &Recorder{}
	a := NewAdapter(rec)
	s := testScene()
	a.Reconcile(s)
	rec.Reset()

	s.Style = StyleSatellite
	d := a.Reconcile(s)

	assert.True(t, d.StyleChanged)
	require.Len(t, rec.Calls, 1)
	assert.Equal(t, Call{Op: "style", Style: StyleSatellite}, rec.Calls[0])
	assert.Equal(t, StyleSatellite, a.Style())
}

func TestClick_ReportsIDWithoutChangingState(t *testing.T) {
	rec := &Recorder{}
	a := NewAdapter(rec)
	a.Reconcile(testScene())
	rec.Reset()

	var clicked []string
	a.OnMarkerClick(func(id string) { clicked = append(clicked, id) })

	assert.True(t, a.Click("HR-2024-002"))
	assert.False(t, a.Click("HR-9999"))
	assert.Equal(t, []string{"HR-2024-002"}, clicked)
	assert.Empty(t, rec.Calls)
}

func TestMapClick(t *testing.T) {
	a := NewAdapter(&Recorder{})
	var got models.Coordinates
	a.OnMapClick(func(lat, lng float64) { got = models.Coordinates{Lat: lat, Lng: lng} })

	a.MapClick(12.5, 80.1)

	assert.Equal(t, models.Coordinates{Lat: 12.5, Lng: 80.1}, got)
}

func TestBounds(t *testing.T) {
	a := NewAdapter(&Recorder{})
	_, ok := a.Bounds()
	assert.False(t, ok)

	s := testScene()
	s.Layers = layers.State{layers.Hazards: true}
	a.Reconcile(s)

	ext, ok := a.Bounds()
	require.True(t, ok)
	assert.InDelta(t, 9.9658, ext.MinLat, 1e-9)
	assert.InDelta(t, 19.0760, ext.MaxLat, 1e-9)
	assert.InDelta(t, 72.8777, ext.MinLng, 1e-9)
	assert.InDelta(t, 83.2185, ext.MaxLng, 1e-9)
}

func TestGeoJSONRenderer_FollowsReconcile(t *testing.T) {
	r := NewGeoJSONRenderer()
	a := NewAdapter(r)
	s := testScene()
	a.Reconcile(s)

	fc := r.Collection(layers.Hazards)
	require.Len(t, fc.Features, 6)
	assert.Equal(t, "HR-2024-001", fc.Features[0].ID)
	assert.Equal(t, []float64{80.2824, 13.0500}, fc.Features[0].Geometry.Point)
	assert.Equal(t, "high", fc.Features[0].Properties["severity"])
	assert.Empty(t, r.Collection(layers.Population).Features)

	s.Hazards = s.Hazards[1:2]
	s.Layers = s.Layers.Clone()
	s.Layers[layers.Evacuation] = true
	a.Reconcile(s)

	fc = r.Collection(layers.Hazards)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "HR-2024-002", fc.Features[0].ID)
	routes := r.Collection(layers.Evacuation)
	require.Len(t, routes.Features, 2)
	assert.True(t, routes.Features[0].Geometry.IsLineString())
	assert.Equal(t, StyleStreet, r.Style())
}

func TestParseBaseStyle(t *testing.T) {
	s, err := ParseBaseStyle("Satellite")
	require.NoError(t, err)
	assert.Equal(t, StyleSatellite, s)
	assert.Contains(t, s.TileURL(), "World_Imagery")

	s, err = ParseBaseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleStreet, s)

	_, err = ParseBaseStyle("night")
	assert.Error(t, err)
}

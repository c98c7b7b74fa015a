package mapview

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/mr1hm/coastwatch/internal/layers"
)

// GeoJSONRenderer keeps one FeatureCollection per layer. It backs the
// HTTP layer endpoints.
type GeoJSONRenderer struct {
	features map[layers.Layer]map[string]*geojson.Feature
	order    map[layers.Layer][]string
	style    BaseStyle
}

func NewGeoJSONRenderer() *GeoJSONRenderer {
	return &GeoJSONRenderer{
		features: make(map[layers.Layer]map[string]*geojson.Feature),
		order:    make(map[layers.Layer][]string),
	}
}

func (r *GeoJSONRenderer) AddMarker(m Marker) {
	if r.features[m.Layer] == nil {
		r.features[m.Layer] = make(map[string]*geojson.Feature)
	}
	if _, ok := r.features[m.Layer][m.ID]; !ok {
		r.order[m.Layer] = append(r.order[m.Layer], m.ID)
	}
	r.features[m.Layer][m.ID] = m.Feature
}

func (r *GeoJSONRenderer) RemoveMarker(l layers.Layer, id string) {
	if _, ok := r.features[l][id]; !ok {
		return
	}
	delete(r.features[l], id)
	order := r.order[l]
	for i, v := range order {
		if v == id {
			r.order[l] = append(order[:i], order[i+1:]...)
			break
		}
	}
}

func (r *GeoJSONRenderer) SetBaseStyle(style BaseStyle) {
	r.style = style
}

func (r *GeoJSONRenderer) Style() BaseStyle {
	return r.style
}

// Collection returns layer l as a FeatureCollection in insertion order. A
// hidden or empty layer yields a collection with no features.
func (r *GeoJSONRenderer) Collection(l layers.Layer) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range r.order[l] {
		if f, ok := r.features[l][id]; ok {
			fc.AddFeature(f)
		}
	}
	return fc
}

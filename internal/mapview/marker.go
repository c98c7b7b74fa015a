package mapview

import (
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/mr1hm/coastwatch/internal/layers"
	"github.com/mr1hm/coastwatch/internal/models"
)

// Marker is one feature drawn on a map layer. Markers are identified by
// (Layer, ID); the feature is only built when the marker is added.
type Marker struct {
	Layer   layers.Layer
	ID      string
	Feature *geojson.Feature
}

type candidate struct {
	id    string
	build func() *geojson.Feature
}

func point(c models.Coordinates) []float64 {
	return []float64{c.Lng, c.Lat}
}

func hazardFeature(r models.HazardRecord) *geojson.Feature {
	f := geojson.NewPointFeature(point(r.Coordinates))
	f.ID = r.ID
	f.SetProperty("id", r.ID)
	f.SetProperty("title", r.DisplayTitle())
	f.SetProperty("type", r.Type.String())
	f.SetProperty("type_label", r.Type.Label())
	f.SetProperty("severity", r.Severity.String())
	f.SetProperty("color", r.Severity.Color())
	f.SetProperty("status", r.Status.String())
	f.SetProperty("location", r.Location)
	f.SetProperty("region", r.Region)
	f.SetProperty("reporter", r.Reporter)
	f.SetProperty("description", r.Description)
	f.SetProperty("timestamp", r.Timestamp.UTC().Format(time.RFC3339))
	return f
}

func stationFeature(s models.WeatherStation) *geojson.Feature {
	f := geojson.NewPointFeature(point(s.Coordinates))
	f.ID = s.ID
	f.SetProperty("id", s.ID)
	f.SetProperty("name", s.Name)
	f.SetProperty("wind_speed_kts", s.WindSpeedKts)
	f.SetProperty("wave_height_m", s.WaveHeightM)
	f.SetProperty("water_temp_c", s.WaterTempC)
	f.SetProperty("online", s.Online)
	f.SetProperty("updated_at", s.UpdatedAt.UTC().Format(time.RFC3339))
	return f
}

func routeFeature(r models.EvacuationRoute) *geojson.Feature {
	path := make([][]float64, 0, len(r.Path))
	for _, c := range r.Path {
		path = append(path, point(c))
	}
	f := geojson.NewLineStringFeature(path)
	f.ID = r.ID
	f.SetProperty("id", r.ID)
	f.SetProperty("name", r.Name)
	return f
}

func zoneFeature(z models.DensityZone) *geojson.Feature {
	f := geojson.NewPointFeature(point(z.Center))
	f.ID = z.ID
	f.SetProperty("id", z.ID)
	f.SetProperty("name", z.Name)
	f.SetProperty("per_square_km", z.PerSquareKm)
	return f
}

// candidates lists the markers layer l wants for scene s, in draw order.
func (s *Scene) candidates(l layers.Layer) []candidate {
	if !s.Layers[l] {
		return nil
	}
	var out []candidate
	switch l {
	case layers.Hazards:
		for _, r := range s.Hazards {
			out = append(out, candidate{id: r.ID, build: func() *geojson.Feature { return hazardFeature(r) }})
		}
	case layers.Weather:
		for _, st := range s.Stations {
			out = append(out, candidate{id: st.ID, build: func() *geojson.Feature { return stationFeature(st) }})
		}
	case layers.Evacuation:
		for _, r := range s.Routes {
			out = append(out, candidate{id: r.ID, build: func() *geojson.Feature { return routeFeature(r) }})
		}
	case layers.Population:
		for _, z := range s.Zones {
			out = append(out, candidate{id: z.ID, build: func() *geojson.Feature { return zoneFeature(z) }})
		}
	}
	return out
}

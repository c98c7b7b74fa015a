// Package fixtures holds the sample dataset the dashboard ships with: six
// hazard reports along the Indian coastline, monitoring stations and the
// evacuation/population overlays.
package fixtures

import (
	"time"

	"github.com/mr1hm/coastwatch/internal/models"
)

// Reports returns the sample hazard reports with timestamps relative to now,
// newest first.
func Reports(now time.Time) []models.HazardRecord {
	return []models.HazardRecord{
		{
			ID:          "HR-2024-001",
			Title:       "High Waves Alert",
			Type:        models.HazardTypeHighWaves,
			Severity:    models.SeverityHigh,
			Status:      models.StatusActive,
			Coordinates: models.Coordinates{Lat: 13.0500, Lng: 80.2824},
			Location:    "Marina Beach, Chennai",
			Region:      "Tamil Nadu",
			District:    "Chennai",
			Reporter:    "Coastal Guard Station",
			Timestamp:   now.Add(-2 * time.Minute),
			Description: "Waves above 3m breaking over the promenade. Beach access closed.",
		},
		{
			ID:          "HR-2024-002",
			Title:       "Storm Surge Warning",
			Type:        models.HazardTypeStormSurge,
			Severity:    models.SeverityMedium,
			Status:      models.StatusInvestigating,
			Coordinates: models.Coordinates{Lat: 9.9658, Lng: 76.2421},
			Location:    "Kochi Harbor",
			Region:      "Kerala",
			District:    "Ernakulam",
			Reporter:    "Local Fisherman",
			Timestamp:   now.Add(-15 * time.Minute),
			Description: "Water level rising quickly at the fishing jetty.",
		},
		{
			ID:          "HR-2024-003",
			Title:       "Coastal Flooding",
			Type:        models.HazardTypeCoastalFlooding,
			Severity:    models.SeverityHigh,
			Status:      models.StatusActive,
			Coordinates: models.Coordinates{Lat: 11.9340, Lng: 79.8380},
			Location:    "Puducherry Beach",
			Region:      "Puducherry",
			District:    "Puducherry",
			Reporter:    "Tourist",
			Timestamp:   now.Add(-1 * time.Hour),
			Description: "Seawater entering Goubert Avenue near the pier.",
		},
		{
			ID:          "HR-2024-004",
			Title:       "Rip Current Advisory",
			Type:        models.HazardTypeRipCurrent,
			Severity:    models.SeverityLow,
			Status:      models.StatusResolved,
			Coordinates: models.Coordinates{Lat: 15.5440, Lng: 73.7553},
			Location:    "Calangute Beach, Goa",
			Region:      "Goa",
			District:    "North Goa",
			Reporter:    "Lifeguard",
			Timestamp:   now.Add(-2 * time.Hour),
			Description: "Strong offshore current near the northern flags.",
		},
		{
			ID:          "HR-2024-005",
			Title:       "Pollution Alert",
			Type:        models.HazardTypePollution,
			Severity:    models.SeverityMedium,
			Status:      models.StatusActive,
			Coordinates: models.Coordinates{Lat: 19.0760, Lng: 72.8777},
			Location:    "Mumbai Coast",
			Region:      "Maharashtra",
			District:    "Mumbai",
			Reporter:    "Environmental Agency",
			Timestamp:   now.Add(-3 * time.Hour),
			Description: "Oil sheen spotted along the shoreline after a vessel discharge.",
		},
		{
			ID:          "HR-2024-006",
			Title:       "Tsunami Warning",
			Type:        models.HazardTypeTsunami,
			Severity:    models.SeverityHigh,
			Status:      models.StatusResolved,
			Coordinates: models.Coordinates{Lat: 17.6868, Lng: 83.2185},
			Location:    "Vishakhapatnam Port",
			Region:      "Andhra Pradesh",
			District:    "Vishakhapatnam",
			Reporter:    "INCOIS",
			Timestamp:   now.Add(-4 * time.Hour),
			Description: "Precautionary warning after an offshore earthquake, since lifted.",
		},
	}
}

func Stations(now time.Time) []models.WeatherStation {
	return []models.WeatherStation{
		{ID: "WS-CHN", Name: "Chennai Buoy", Coordinates: models.Coordinates{Lat: 13.08, Lng: 80.42}, WindSpeedKts: 18, WaveHeightM: 3.1, WaterTempC: 29.2, Online: true, UpdatedAt: now.Add(-5 * time.Minute)},
		{ID: "WS-KOC", Name: "Kochi Tide Gauge", Coordinates: models.Coordinates{Lat: 9.97, Lng: 76.26}, WindSpeedKts: 12, WaveHeightM: 1.8, WaterTempC: 28.6, Online: true, UpdatedAt: now.Add(-7 * time.Minute)},
		{ID: "WS-MUM", Name: "Mumbai Offshore", Coordinates: models.Coordinates{Lat: 18.95, Lng: 72.70}, WindSpeedKts: 9, WaveHeightM: 1.2, WaterTempC: 27.9, Online: true, UpdatedAt: now.Add(-4 * time.Minute)},
		{ID: "WS-VSK", Name: "Visakhapatnam Buoy", Coordinates: models.Coordinates{Lat: 17.65, Lng: 83.35}, WindSpeedKts: 0, WaveHeightM: 0, WaterTempC: 0, Online: false, UpdatedAt: now.Add(-6 * time.Hour)},
	}
}

func EvacuationRoutes() []models.EvacuationRoute {
	return []models.EvacuationRoute{
		{
			ID:   "EV-CHN-1",
			Name: "Marina Beach to Anna Salai",
			Path: []models.Coordinates{{Lat: 13.0500, Lng: 80.2824}, {Lat: 13.0550, Lng: 80.2700}, {Lat: 13.0600, Lng: 80.2570}},
		},
		{
			ID:   "EV-PDY-1",
			Name: "Beach Road to Bharathi Park",
			Path: []models.Coordinates{{Lat: 11.9340, Lng: 79.8380}, {Lat: 11.9330, Lng: 79.8330}, {Lat: 11.9320, Lng: 79.8300}},
		},
	}
}

func DensityZones() []models.DensityZone {
	return []models.DensityZone{
		{ID: "PD-MUM", Name: "Mumbai", Center: models.Coordinates{Lat: 19.0760, Lng: 72.8777}, PerSquareKm: 20680},
		{ID: "PD-CHN", Name: "Chennai", Center: models.Coordinates{Lat: 13.0827, Lng: 80.2707}, PerSquareKm: 14350},
		{ID: "PD-KOC", Name: "Kochi", Center: models.Coordinates{Lat: 9.9312, Lng: 76.2673}, PerSquareKm: 6340},
	}
}

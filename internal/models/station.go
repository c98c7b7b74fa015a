package models

import "time"

// WeatherStation is a coastal monitoring station shown on the weather layer.
type WeatherStation struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Coordinates  Coordinates `json:"coordinates"`
	WindSpeedKts float64     `json:"wind_speed_kts"`
	WaveHeightM  float64     `json:"wave_height_m"`
	WaterTempC   float64     `json:"water_temp_c"`
	Online       bool        `json:"online"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// EvacuationRoute is a polyline drawn on the evacuation layer.
type EvacuationRoute struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Path []Coordinates `json:"path"`
}

// DensityZone is a point on the population density layer.
type DensityZone struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Center      Coordinates `json:"center"`
	PerSquareKm int         `json:"per_square_km"`
}

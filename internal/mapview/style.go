package mapview

import (
	"fmt"
	"strings"
)

// BaseStyle selects the tile set under the data layers.
type BaseStyle string

const (
	StyleStreet    BaseStyle = "street"
	StyleSatellite BaseStyle = "satellite"
	StyleTerrain   BaseStyle = "terrain"
)

func ParseBaseStyle(s string) (BaseStyle, error) {
	switch BaseStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleStreet:
		return StyleStreet, nil
	case StyleSatellite:
		return StyleSatellite, nil
	case StyleTerrain:
		return StyleTerrain, nil
	default:
		return "", fmt.Errorf("unknown base style %q", s)
	}
}

// TileURL is the slippy-map template for the style.
func (s BaseStyle) TileURL() string {
	switch s {
	case StyleSatellite:
		return "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}"
	case StyleTerrain:
		return "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png"
	default:
		return "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	}
}

package models

import (
	"fmt"
	"strings"
)

// HazardType is the category of a coastal hazard report. The zero value is
// HazardTypeUnspecified, which filters treat as "all types".
type HazardType int

const (
	HazardTypeUnspecified HazardType = iota
	HazardTypeStormSurge
	HazardTypeHighWaves
	HazardTypeRipCurrent
	HazardTypeCoastalFlooding
	HazardTypePollution
	HazardTypeErosion
	HazardTypeTsunami
	HazardTypeOther
)

// HazardTypes lists every concrete hazard type in display order.
var HazardTypes = []HazardType{
	HazardTypeStormSurge,
	HazardTypeHighWaves,
	HazardTypeRipCurrent,
	HazardTypeCoastalFlooding,
	HazardTypePollution,
	HazardTypeErosion,
	HazardTypeTsunami,
	HazardTypeOther,
}

func (t HazardType) String() string {
	switch t {
	case HazardTypeStormSurge:
		return "storm-surge"
	case HazardTypeHighWaves:
		return "high-waves"
	case HazardTypeRipCurrent:
		return "rip-current"
	case HazardTypeCoastalFlooding:
		return "coastal-flooding"
	case HazardTypePollution:
		return "pollution"
	case HazardTypeErosion:
		return "erosion"
	case HazardTypeTsunami:
		return "tsunami"
	case HazardTypeOther:
		return "other"
	default:
		return "unspecified"
	}
}

// Label is the human readable name shown in lists and popups.
func (t HazardType) Label() string {
	switch t {
	case HazardTypeStormSurge:
		return "Storm Surge"
	case HazardTypeHighWaves:
		return "High Waves"
	case HazardTypeRipCurrent:
		return "Rip Current"
	case HazardTypeCoastalFlooding:
		return "Coastal Flooding"
	case HazardTypePollution:
		return "Pollution"
	case HazardTypeErosion:
		return "Beach Erosion"
	case HazardTypeTsunami:
		return "Tsunami Warning"
	case HazardTypeOther:
		return "Other"
	default:
		return ""
	}
}

func (t HazardType) Valid() bool {
	return t > HazardTypeUnspecified && t <= HazardTypeOther
}

// ParseHazardType accepts slugs ("storm-surge") and display labels
// ("Storm Surge", "Pollution Alert"), case-insensitively.
func ParseHazardType(s string) (HazardType, error) {
	switch normalize(s) {
	case "storm-surge", "cyclone", "cyclone-storm":
		return HazardTypeStormSurge, nil
	case "high-waves":
		return HazardTypeHighWaves, nil
	case "rip-current", "rip-currents":
		return HazardTypeRipCurrent, nil
	case "coastal-flooding", "flooding":
		return HazardTypeCoastalFlooding, nil
	case "pollution", "pollution-alert", "marine-pollution":
		return HazardTypePollution, nil
	case "erosion", "beach-erosion":
		return HazardTypeErosion, nil
	case "tsunami", "tsunami-warning":
		return HazardTypeTsunami, nil
	case "other", "other-hazard":
		return HazardTypeOther, nil
	default:
		return HazardTypeUnspecified, fmt.Errorf("unknown hazard type %q", s)
	}
}

func (t HazardType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid hazard type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *HazardType) UnmarshalText(b []byte) error {
	v, err := ParseHazardType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Severity is ordered: Low < Medium < High < Critical.
type Severity int

const (
	SeverityUnspecified Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unspecified"
	}
}

func (s Severity) Valid() bool {
	return s > SeverityUnspecified && s <= SeverityCritical
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// Color is the marker fill used by the map for this severity.
func (s Severity) Color() string {
	switch s {
	case SeverityLow:
		return "#22c55e"
	case SeverityMedium:
		return "#eab308"
	case SeverityHigh:
		return "#ef4444"
	case SeverityCritical:
		return "#9333ea"
	default:
		return "#6b7280"
	}
}

func ParseSeverity(s string) (Severity, error) {
	switch normalize(s) {
	case "low":
		return SeverityLow, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityUnspecified, fmt.Errorf("unknown severity %q", s)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Status int

const (
	StatusUnspecified Status = iota
	StatusActive
	StatusInvestigating
	StatusResolved
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInvestigating:
		return "investigating"
	case StatusResolved:
		return "resolved"
	default:
		return "unspecified"
	}
}

func (s Status) Valid() bool {
	return s > StatusUnspecified && s <= StatusResolved
}

func ParseStatus(s string) (Status, error) {
	switch normalize(s) {
	case "active":
		return StatusActive, nil
	case "investigating":
		return StatusInvestigating, nil
	case "resolved":
		return StatusResolved, nil
	default:
		return StatusUnspecified, fmt.Errorf("unknown status %q", s)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// normalize lowercases and turns spaces/underscores/slashes into dashes so
// "Storm Surge", "storm_surge" and "storm-surge" compare equal.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "-", "_", "-", "/", "-").Replace(s)
}

package dashboard

import "github.com/mr1hm/coastwatch/internal/models"

// Stats summarizes the dashboard's records and stations.
type Stats struct {
	Total          int            `json:"total"`
	Active         int            `json:"active"`
	Investigating  int            `json:"investigating"`
	Resolved       int            `json:"resolved"`
	BySeverity     map[string]int `json:"by_severity"`
	ByType         map[string]int `json:"by_type"`
	ByRegion       map[string]int `json:"by_region"`
	StationsOnline int            `json:"stations_online"`
	StationsTotal  int            `json:"stations_total"`
}

func Summarize(records []models.HazardRecord, stations []models.WeatherStation) Stats {
	st := Stats{
		Total:         len(records),
		BySeverity:    make(map[string]int),
		ByType:        make(map[string]int),
		ByRegion:      make(map[string]int),
		StationsTotal: len(stations),
	}
	for _, r := range records {
		switch r.Status {
		case models.StatusActive:
			st.Active++
		case models.StatusInvestigating:
			st.Investigating++
		case models.StatusResolved:
			st.Resolved++
		}
		st.BySeverity[r.Severity.String()]++
		st.ByType[r.Type.String()]++
		if r.Region != "" {
			st.ByRegion[r.Region]++
		}
	}
	for _, s := range stations {
		if s.Online {
			st.StationsOnline++
		}
	}
	return st
}

package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/mr1hm/coastwatch/internal/models"
)

const maxFeedBytes = 8 << 20

func (m *Manager) fetchFeed(ctx context.Context, url string) ([]models.HazardRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading feed: %w", err)
	}
	return parseFeed(body, m.clock.Now())
}

// parseFeed maps a GeoJSON FeatureCollection of hazard points onto records.
// Features that cannot be mapped are skipped and logged.
func parseFeed(body []byte, now time.Time) ([]models.HazardRecord, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("error decoding feature collection: %w", err)
	}

	records := make([]models.HazardRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		r, err := featureRecord(f, now)
		if err != nil {
			slog.Warn("skipping feed feature", "index", i, "error", err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func featureRecord(f *geojson.Feature, now time.Time) (models.HazardRecord, error) {
	var r models.HazardRecord
	if f.Geometry == nil || !f.Geometry.IsPoint() || len(f.Geometry.Point) < 2 {
		return r, fmt.Errorf("feature is not a point")
	}

	id := f.PropertyMustString("id")
	if f.ID != nil {
		id = fmt.Sprint(f.ID)
	}
	if id == "" {
		return r, fmt.Errorf("feature has no id")
	}

	typ, err := models.ParseHazardType(f.PropertyMustString("type", "other"))
	if err != nil {
		typ = models.HazardTypeOther
	}
	severity, err := models.ParseSeverity(f.PropertyMustString("severity", "medium"))
	if err != nil {
		return r, err
	}
	status, err := models.ParseStatus(f.PropertyMustString("status", "active"))
	if err != nil {
		return r, err
	}

	r = models.HazardRecord{
		ID:          "feed_" + id,
		Title:       f.PropertyMustString("title"),
		Type:        typ,
		Severity:    severity,
		Status:      status,
		Coordinates: models.Coordinates{Lat: f.Geometry.Point[1], Lng: f.Geometry.Point[0]},
		Location:    f.PropertyMustString("location"),
		Region:      f.PropertyMustString("region"),
		District:    f.PropertyMustString("district"),
		Reporter:    f.PropertyMustString("reporter", "feed"),
		Description: f.PropertyMustString("description"),
		Timestamp:   featureTime(f, now),
	}
	if strings.TrimSpace(r.Title) == "" {
		r.Title = r.DisplayTitle()
	}
	return r, r.Validate()
}

// featureTime reads an RFC 3339 "timestamp" or a unix-millisecond "time"
// property, falling back to now.
func featureTime(f *geojson.Feature, now time.Time) time.Time {
	if s := f.PropertyMustString("timestamp"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
	}
	if ms := f.PropertyMustFloat64("time"); ms > 0 {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return now
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/coastwatch/internal/dashboard"
	"github.com/mr1hm/coastwatch/internal/filter"
	"github.com/mr1hm/coastwatch/internal/layers"
	"github.com/mr1hm/coastwatch/internal/mapview"
	"github.com/mr1hm/coastwatch/internal/models"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/report"
	"github.com/mr1hm/coastwatch/internal/repository"
)

const emptyMessage = "No reports match the current filters."

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Repo      repository.HazardRepository
	Queue     repository.OfflineQueue
	Drafts    *report.Registry
	Finalizer *report.Finalizer
	Overlays  dashboard.Overlays
	Clock     clockwork.Clock
	Metrics   *observability.Metrics
	DB        Pinger       // optional, checked by /health
	Live      http.Handler // optional, served at /ws/map
	Scrape    http.Handler // served at /metrics; defaults to promhttp
}

type Handler struct {
	repo      repository.HazardRepository
	queue     repository.OfflineQueue
	drafts    *report.Registry
	finalizer *report.Finalizer
	overlays  dashboard.Overlays
	clock     clockwork.Clock
	metrics   *observability.Metrics
	db        Pinger
	live      http.Handler
	scrape    http.Handler
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		repo:      d.Repo,
		queue:     d.Queue,
		drafts:    d.Drafts,
		finalizer: d.Finalizer,
		overlays:  d.Overlays,
		clock:     d.Clock,
		metrics:   d.Metrics,
		db:        d.DB,
		live:      d.Live,
		scrape:    d.Scrape,
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	if h.scrape == nil {
		h.scrape = promhttp.Handler()
	}
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(h.scrape))
	if h.live != nil {
		r.GET("/ws/map", gin.WrapH(h.live))
	}

	api := r.Group("/api")
	api.GET("/hazards", h.getHazards)
	api.GET("/hazards/:id", h.getHazard)
	api.GET("/reports", h.getReports)
	api.GET("/stations", h.getStations)
	api.GET("/stats", h.getStats)
	api.GET("/layers/:layer", h.getLayer)

	drafts := api.Group("/drafts")
	drafts.POST("", h.createDraft)
	drafts.GET("/:id", h.getDraft)
	drafts.PATCH("/:id", h.patchDraft)
	drafts.DELETE("/:id", h.deleteDraft)
	drafts.POST("/:id/next", h.nextStep)
	drafts.POST("/:id/prev", h.prevStep)
	drafts.POST("/:id/geolocate", h.geolocate)
	drafts.POST("/:id/attachments", h.addAttachment)
	drafts.DELETE("/:id/attachments/:index", h.removeAttachment)
	drafts.POST("/:id/submit", h.submitDraft)

	api.GET("/offline-queue", h.getOfflineQueue)
	api.POST("/offline-queue/:id/synced", h.markSynced)
}

func (h *Handler) health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// filterState binds the filter query parameters. It writes a 400 and
// returns false on bad input.
func filterState(c *gin.Context) (filter.State, bool) {
	var q filter.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return filter.State{}, false
	}
	st, err := q.State()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return filter.State{}, false
	}
	return st, true
}

func (h *Handler) allHazards(c *gin.Context) ([]models.HazardRecord, bool) {
	records, err := h.repo.ListHazards(c.Request.Context(), repository.Filter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch hazards",
		})
		return nil, false
	}
	return records, true
}

// session builds a throwaway dashboard session drawn onto a GeoJSON
// renderer.
func (h *Handler) session(records []models.HazardRecord, st filter.State) (*dashboard.Session, *mapview.GeoJSONRenderer) {
	r := mapview.NewGeoJSONRenderer()
	s := dashboard.NewSession(records, h.overlays, r, h.clock)
	s.SetFilters(st)
	return s, r
}

func (h *Handler) getHazards(c *gin.Context) {
	st, ok := filterState(c)
	if !ok {
		return
	}
	records, ok := h.allHazards(c)
	if !ok {
		return
	}

	s, r := h.session(records, st)
	fc := r.Collection(layers.Hazards)

	c.Header("X-Result-Count", strconv.Itoa(s.View().Count))
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getHazard(c *gin.Context) {
	r, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch hazard"})
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "hazard not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) getReports(c *gin.Context) {
	st, ok := filterState(c)
	if !ok {
		return
	}
	records, ok := h.allHazards(c)
	if !ok {
		return
	}

	visible := filter.Apply(records, st, h.clock.Now())
	resp := gin.H{
		"count":   len(visible),
		"total":   len(records),
		"empty":   len(visible) == 0,
		"message": "",
		"filters": st.Query(),
		"reports": visible,
	}
	if len(visible) == 0 {
		resp["message"] = emptyMessage
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getStations(c *gin.Context) {
	stations := h.overlays.Stations
	if stations == nil {
		stations = []models.WeatherStation{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(stations), "stations": stations})
}

func (h *Handler) getStats(c *gin.Context) {
	records, ok := h.allHazards(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.Summarize(records, h.overlays.Stations))
}

// getLayer renders one map layer, switched on, as GeoJSON.
func (h *Handler) getLayer(c *gin.Context) {
	l, err := layers.Parse(c.Param("layer"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	style, err := mapview.ParseBaseStyle(c.Query("style"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, ok := filterState(c)
	if !ok {
		return
	}
	records, ok := h.allHazards(c)
	if !ok {
		return
	}

	s, r := h.session(records, st)
	if !s.Layers()[l] {
		if _, _, err := s.ToggleLayer(l); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	s.SetBaseStyle(style)

	fc := r.Collection(l)
	if ext, ok := s.Adapter().Bounds(); ok {
		fc.BoundingBox = []float64{ext.MinLng, ext.MinLat, ext.MaxLng, ext.MaxLat}
	}
	c.Header("X-Base-Style", string(r.Style()))
	c.Header("X-Tile-URL", r.Style().TileURL())
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getOfflineQueue(c *gin.Context) {
	entries, err := h.queue.ReadAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read offline queue"})
		return
	}
	pending := 0
	for _, e := range entries {
		if !e.Synced {
			pending++
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "pending": pending, "entries": entries})
}

func (h *Handler) markSynced(c *gin.Context) {
	ok, err := h.queue.MarkSynced(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update offline queue"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no unsynced entry with that id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "synced": true})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, report.ErrDraftNotFound), errors.Is(err, report.ErrNoAttachment):
		return http.StatusNotFound
	case errors.Is(err, report.ErrDraftClosed), errors.Is(err, report.ErrSubmissionInProgress):
		return http.StatusConflict
	case errors.Is(err, report.ErrNotReady):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

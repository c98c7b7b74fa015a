package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/coastwatch/internal/models"
	"github.com/mr1hm/coastwatch/internal/report"
)

type draftResponse struct {
	*report.Draft
	CanAdvance    bool   `json:"can_advance"`
	SeverityLabel string `json:"severity_label"`
	Submitting    bool   `json:"submitting"`
}

func (h *Handler) draftView(d *report.Draft) draftResponse {
	return draftResponse{
		Draft:         d,
		CanAdvance:    d.CanAdvance(),
		SeverityLabel: report.SeverityLabel(d.Severity),
		Submitting:    h.drafts.Submitting(d.ID),
	}
}

func (h *Handler) createDraft(c *gin.Context) {
	d := h.drafts.Create()
	c.JSON(http.StatusCreated, h.draftView(d))
}

func (h *Handler) getDraft(c *gin.Context) {
	d, err := h.drafts.Get(c.Param("id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.draftView(d))
}

func (h *Handler) patchDraft(c *gin.Context) {
	var p report.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.drafts.Update(c.Param("id"), func(d *report.Draft) error {
		return d.Apply(p)
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.draftView(d))
}

// deleteDraft discards a draft. Nothing about it is kept.
func (h *Handler) deleteDraft(c *gin.Context) {
	if !h.drafts.Discard(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": report.ErrDraftNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// nextStep answers 200 even when the step guard blocks: a blocked step is a
// disabled control, not an error.
func (h *Handler) nextStep(c *gin.Context) {
	var advanced bool
	d, err := h.drafts.Update(c.Param("id"), func(d *report.Draft) error {
		advanced = d.Next()
		return nil
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"advanced": advanced, "draft": h.draftView(d)})
}

func (h *Handler) prevStep(c *gin.Context) {
	var moved bool
	d, err := h.drafts.Update(c.Param("id"), func(d *report.Draft) error {
		moved = d.Prev()
		return nil
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved, "draft": h.draftView(d)})
}

// geolocateRequest carries the browser's geolocation result: a position, or
// the error it reported.
type geolocateRequest struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error"`
}

func (g geolocateRequest) Locate(context.Context) (models.Coordinates, error) {
	if g.Error != "" {
		return models.Coordinates{}, errors.New(g.Error)
	}
	if g.Lat == nil || g.Lng == nil {
		return models.Coordinates{}, errors.New("no position reported")
	}
	return models.Coordinates{Lat: *g.Lat, Lng: *g.Lng}, nil
}

func (h *Handler) geolocate(c *gin.Context) {
	var req geolocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var notice string
	d, err := h.drafts.Update(c.Param("id"), func(d *report.Draft) error {
		err := d.PrefillLocation(c.Request.Context(), req)
		if errors.Is(err, report.ErrLocationUnavailable) {
			notice = "Unable to get your location. Pick a point on the map or enter it manually."
			slog.Debug("geolocation failed", "draft", d.ID, "error", err)
			return nil
		}
		return err
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"located": notice == "", "draft": h.draftView(d)}
	if notice != "" {
		resp["notice"] = notice
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) addAttachment(c *gin.Context) {
	var a report.Attachment
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.drafts.Update(c.Param("id"), func(d *report.Draft) error {
		return d.AddAttachment(a)
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, h.draftView(d))
}

func (h *Handler) removeAttachment(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attachment index must be a number"})
		return
	}
	d, err := h.drafts.Update(c.Param("id"), func(d *report.Draft) error {
		return d.RemoveAttachment(i)
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.draftView(d))
}

type submitRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// submitDraft finalizes a reviewed draft. The client reports whether it is
// online; the call returns after the simulated submission delay.
func (h *Handler) submitDraft(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"online\": true|false}"})
		return
	}

	id := c.Param("id")
	var out report.Outcome
	d, err := h.drafts.Submit(id, func(d *report.Draft) error {
		var err error
		out, err = h.finalizer.Finalize(c.Request.Context(), d, *req.Online)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, report.ErrDraftNotFound), errors.Is(err, report.ErrNotReady), errors.Is(err, report.ErrSubmissionInProgress):
			c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		default:
			slog.Error("report submission failed", "draft", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit report"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": out, "draft": h.draftView(d)})
}

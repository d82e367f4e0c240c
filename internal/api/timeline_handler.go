package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/service"
)

// TimelineHandler handles timeline and slide endpoints
type TimelineHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewTimelineHandler creates a new TimelineHandler
func NewTimelineHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *TimelineHandler {
	return &TimelineHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "timeline").Logger(),
	}
}

// CreateTimeline handles POST /v1/timelines
func (h *TimelineHandler) CreateTimeline(c *gin.Context) {
	var req models.TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	t, err := h.services.Timeline.Create(c.Request.Context(), &req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create timeline")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create timeline"})
		return
	}
	c.JSON(http.StatusCreated, t)
}

// ListTimelines handles GET /v1/timelines?limit=&offset=
func (h *TimelineHandler) ListTimelines(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	timelines, err := h.services.Timeline.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list timelines")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list timelines"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timelines": timelines,
		"count":     len(timelines),
	})
}

// GetTimeline handles GET /v1/timelines/:id
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	id := c.Param("id")
	t, err := h.services.Timeline.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("timeline_id", id).Msg("Failed to get timeline")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get timeline"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTimeline handles DELETE /v1/timelines/:id
func (h *TimelineHandler) DeleteTimeline(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.services.Timeline.Delete(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("timeline_id", id).Msg("Failed to delete timeline")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete timeline"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ReplaceSlides handles PUT /v1/timelines/:id/slides with slides typed by hand
func (h *TimelineHandler) ReplaceSlides(c *gin.Context) {
	id := c.Param("id")
	var req models.SlidesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.services.Timeline.ReplaceSlides(c.Request.Context(), id, req.Slides)
	if err != nil {
		h.log.Error().Err(err).Str("timeline_id", id).Msg("Failed to replace slides")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replace slides"})
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Preview handles POST /v1/timelines/:id/preview. The spreadsheet is
// ingested synchronously and nothing is saved.
func (h *TimelineHandler) Preview(c *gin.Context) {
	id := c.Param("id")

	var src service.SpreadsheetSource
	if c.ContentType() == "multipart/form-data" {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
			return
		}
		defer file.Close()

		if header.Size > h.cfg.Import.MaxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": tooLargeMessage(h.cfg.Import.MaxUploadSize)})
			return
		}
		content, err := io.ReadAll(io.LimitReader(file, h.cfg.Import.MaxUploadSize+1))
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to read upload")
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
			return
		}
		if int64(len(content)) > h.cfg.Import.MaxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": tooLargeMessage(h.cfg.Import.MaxUploadSize)})
			return
		}
		src = service.SpreadsheetSource{
			Content:   content,
			MediaType: header.Header.Get("Content-Type"),
			Uploaded:  true,
		}
	} else {
		var req models.ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file upload or source is required: " + err.Error()})
			return
		}
		src = service.SpreadsheetSource{Location: req.Source, MediaType: req.MediaType}
	}

	resp, err := h.services.Timeline.Preview(c.Request.Context(), id, src)
	if err != nil {
		writeIngestFailure(c, h.log, resp, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// writeIngestFailure answers 422 for a rejected source or header row and 500
// for anything else
func writeIngestFailure(c *gin.Context, log zerolog.Logger, resp *models.SlidesResponse, err error) {
	if errors.Is(err, service.ErrSchema) || errors.Is(err, service.ErrSource) {
		body := gin.H{"error": err.Error()}
		if resp != nil {
			body["errors"] = resp.Errors
		}
		c.JSON(http.StatusUnprocessableEntity, body)
		return
	}
	log.Error().Err(err).Msg("Ingestion failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest spreadsheet"})
}

func tooLargeMessage(max int64) string {
	return fmt.Sprintf("file too large, max size is %d MB", max/(1024*1024))
}

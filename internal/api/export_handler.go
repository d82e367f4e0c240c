package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/service"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

var exportFormats = map[string]bool{
	service.FormatJSON:   true,
	service.FormatNDJSON: true,
	service.FormatCSV:    true,
	service.FormatXLSX:   true,
}

// ExportSlides handles GET /v1/timelines/:id/export?format=...
// Streams the stored slides directly to the response.
func (h *ExportHandler) ExportSlides(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	format := c.DefaultQuery("format", service.FormatJSON)
	if !exportFormats[format] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: json, ndjson, csv, xlsx"})
		return
	}

	t, err := h.services.Timeline.Get(ctx, id)
	if err != nil {
		h.log.Error().Err(err).Str("timeline_id", id).Msg("Failed to get timeline")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get timeline"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline not found"})
		return
	}

	if err := h.services.Export.StreamSlides(ctx, c.Writer, t.ID, format); err != nil {
		// The body may already be partly written
		h.log.Error().Err(err).Str("timeline_id", id).Str("format", format).Msg("Export failed")
	}
}

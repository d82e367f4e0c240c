package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/service"
	"github.com/timeline-exhibit-api/internal/source"
)

// ImportHandler handles spreadsheet import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/timelines/:id/imports.
// Accepts a file upload (multipart) or a JSON body naming the source.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()
	idempotencyKey := c.GetHeader("Idempotency-Key")

	if idempotencyKey != "" {
		existingJob, err := h.services.Job.GetJobByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existingJob != nil {
			h.log.Info().Str("job_id", existingJob.ID).Msg("Returning existing job for idempotency key")
			c.JSON(http.StatusOK, existingJob)
			return
		}
	}

	req := &models.ImportRequest{
		TimelineID:     c.Param("id"),
		IdempotencyKey: idempotencyKey,
	}

	var saved string
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

		name, err := h.saveUpload(file, header.Filename)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to save upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
			return
		}
		saved = name
		req.Source = name
		req.MediaType = header.Header.Get("Content-Type")

		h.log.Info().
			Str("file", header.Filename).
			Str("saved_as", name).
			Int64("size_bytes", header.Size).
			Msg("Spreadsheet uploaded")
	} else if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload or source is required: " + err.Error()})
		return
	}

	job, err := h.services.Job.CreateImportJob(ctx, req)
	if err != nil {
		h.removeUpload(saved)
		h.log.Error().Err(err).Msg("Failed to create import job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create import job"})
		return
	}
	if job == nil {
		h.removeUpload(saved)
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline not found"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":      job.ID,
		"status":      job.Status,
		"timeline_id": job.TimelineID,
		"message":     "Import job created and queued for processing",
	})
}

// saveUpload copies an upload into the upload directory under a fresh name
// and returns that name
func (h *ImportHandler) saveUpload(file io.Reader, original string) (string, error) {
	if err := os.MkdirAll(h.cfg.Import.UploadDir, 0755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(original))
	if source.CheckName(ext) != nil {
		ext = ""
	}
	name := uuid.New().String() + ext

	dst, err := os.Create(filepath.Join(h.cfg.Import.UploadDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(file, h.cfg.Import.MaxUploadSize+1))
	if err == nil && written > h.cfg.Import.MaxUploadSize {
		err = source.ErrTooLarge
	}
	if err != nil {
		dst.Close()
		h.removeUpload(name)
		return "", err
	}
	return name, nil
}

func (h *ImportHandler) removeUpload(name string) {
	if name == "" {
		return
	}
	if err := os.Remove(filepath.Join(h.cfg.Import.UploadDir, name)); err != nil && !os.IsNotExist(err) {
		h.log.Warn().Err(err).Str("file", name).Msg("Failed to remove upload")
	}
}

// GetImportStatus handles GET /v1/imports/:job_id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	job, err := h.services.Job.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job status"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetImportErrors handles GET /v1/imports/:job_id/errors[?format=csv]
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	jobID := c.Param("job_id")
	errs, err := h.services.Job.GetJobErrors(c.Request.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job errors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get errors"})
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", jobID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"row", "field", "message", "value"})
		for _, e := range errs {
			row := ""
			if e.Row > 0 {
				row = strconv.Itoa(e.Row)
			}
			value := ""
			if e.Value != nil {
				value = fmt.Sprintf("%v", e.Value)
			}
			writer.Write([]string{row, e.Field, e.Message, value})
		}
		writer.Flush()
		return
	}

	if errs == nil {
		errs = []models.ErrorRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":      jobID,
		"error_count": len(errs),
		"errors":      errs,
	})
}

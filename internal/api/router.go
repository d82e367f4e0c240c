package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/service"
	"github.com/timeline-exhibit-api/internal/source"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	registerValidations(log)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	timelineHandler := NewTimelineHandler(services, cfg, log)
	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)

	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services, log))

	// API v1
	v1 := router.Group("/v1")
	{
		timelines := v1.Group("/timelines")
		{
			timelines.POST("", timelineHandler.CreateTimeline)
			timelines.GET("", timelineHandler.ListTimelines)
			timelines.GET("/:id", timelineHandler.GetTimeline)
			timelines.DELETE("/:id", timelineHandler.DeleteTimeline)
			timelines.PUT("/:id/slides", timelineHandler.ReplaceSlides)
			timelines.POST("/:id/preview", timelineHandler.Preview)
			timelines.POST("/:id/imports", importHandler.CreateImport)
			timelines.GET("/:id/export", exportHandler.ExportSlides)
		}

		imports := v1.Group("/imports")
		{
			imports.GET("/:job_id", importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", importHandler.GetImportErrors)
		}
	}

	return router
}

// registerValidations adds the binding tags used by request models
func registerValidations(log zerolog.Logger) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	if err := v.RegisterValidation("spreadsheet_source", validSpreadsheetSource); err != nil {
		log.Error().Err(err).Msg("Failed to register spreadsheet_source validation")
	}
}

// validSpreadsheetSource accepts an http(s) URL or a bare file name
func validSpreadsheetSource(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if source.IsURL(value) {
		return true
	}
	return source.CheckName(value) == nil
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "timeline-exhibit-api",
	})
}

// metricsHandler returns timeline and import job counts
func metricsHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		timelines, err := services.Timeline.Count(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to count timelines")
		}
		jobs, err := services.Job.CountByStatus(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to count import jobs")
		}

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"timelines": timelines,
				"imports":   jobs,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

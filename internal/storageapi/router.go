package storageapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/archival-ingest/internal/api/router"
)

// SetupRouter configures the storage service routes
func SetupRouter(deps *Dependencies, maxUploadBytes int64) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(router.LoggerMiddleware(deps.Logger))
	if maxUploadBytes > 0 {
		r.Use(limitBody(maxUploadBytes))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "storage-service",
		})
	})

	h := NewHandler(deps)
	storage := r.Group("/storage")
	{
		storage.POST("/upload", h.Upload)
		storage.POST("/metadata", h.Metadata)
	}

	deps.Logger.Debug("Storage routes registered", slog.Int("buckets", len(h.buckets)))
	return r
}

// limitBody caps request bodies. Declared oversize bodies are rejected up
// front; chunked ones fail while binding.
func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

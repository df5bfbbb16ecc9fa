package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/archival-ingest/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	if deps.Metrics != nil {
		r.Use(MetricsMiddleware(deps.Metrics))
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "api-service",
		})
	})

	aipHandler := handler.NewAIPHandler(deps)
	transferHandler := handler.NewTransferHandler(deps)

	// POST /aips/ - Register an archival record (201 on success)
	r.POST("/aips/", aipHandler.CreateAIP)

	// GET /aips - List archival records with cursor pagination
	r.GET("/aips", aipHandler.ListAIPs)

	// GET /aips/:transfer_id/location - Download location of a record's file
	r.GET("/aips/:transfer_id/location", aipHandler.GetLocation)

	// POST /transfers - Enqueue a submission for ingestion
	if deps.Queue != nil {
		r.POST("/transfers", transferHandler.CreateTransfer)
	}

	return r
}

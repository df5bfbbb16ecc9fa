package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/archival-ingest/internal/api/dto"
	workerdomain "github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// CreateTransfer handles POST /transfers
// Enqueues a submission directory for ingestion
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "transferId is required",
		})
		return
	}

	folderID := req.FolderID
	if folderID == "" {
		folderID = req.FolderIDAlias
	}

	body, err := json.Marshal(workerdomain.Job{
		TransferID: req.TransferID,
		RA:         req.RA,
		FolderID:   folderID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode job"})
		return
	}

	if err := h.queue.Push(c.Request.Context(), body); err != nil {
		h.logger.Error("Failed to enqueue transfer",
			slog.String("transfer_id", req.TransferID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to enqueue transfer",
		})
		return
	}

	if h.metrics != nil {
		h.metrics.TransfersQueued.Inc()
	}
	h.logger.Info("Transfer queued", slog.String("transfer_id", req.TransferID))

	c.JSON(http.StatusAccepted, dto.CreateTransferResponse{
		TransferID: req.TransferID,
		Status:     "QUEUED",
	})
}

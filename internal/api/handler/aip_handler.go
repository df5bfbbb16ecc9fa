package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/archival-ingest/internal/api/domain"
	"github.com/cuongbtq/archival-ingest/internal/api/dto"
	"github.com/cuongbtq/archival-ingest/internal/api/model"
	"github.com/cuongbtq/archival-ingest/internal/api/storage"
)

// CreateAIP handles POST /aips/
// Persists an archival record with its original and preservation files
func (h *AIPHandler) CreateAIP(c *gin.Context) {
	var req dto.CreateAIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	h.logger.Info("AIP received for registration",
		slog.String("transfer_id", req.TransferID),
		slog.Int("originals", len(req.Originals)),
		slog.Int("preserved", len(req.Preserved)),
	)

	aip := model.AIP{
		TransferID: req.TransferID,
		Title:      req.Title,
		RA:         optional(req.RA),
		FolderID:   optional(req.FolderID),
	}

	if err := h.store.CreateAIP(c.Request.Context(), &aip, toFiles(req.Originals), toFiles(req.Preserved)); err != nil {
		h.logger.Error("Failed to save AIP",
			slog.String("transfer_id", req.TransferID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save AIP",
		})
		return
	}

	if h.metrics != nil {
		h.metrics.AIPsRegistered.Inc()
	}
	h.logger.Info("AIP saved",
		slog.String("transfer_id", aip.TransferID),
		slog.String("aip_id", aip.ID),
	)

	c.JSON(http.StatusCreated, dto.CreateAIPResponse{
		Message: "AIP registered",
		AIPID:   aip.ID,
	})
}

// ListAIPs handles GET /aips
// Lists archival records newest first with cursor pagination
func (h *AIPHandler) ListAIPs(c *gin.Context) {
	var req dto.ListAIPsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeAIPCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	aips, err := h.store.ListAIPs(c.Request.Context(), storage.AIPFilter{
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list AIPs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list AIPs",
		})
		return
	}

	hasMore := len(aips) > req.PageSize
	if hasMore {
		aips = aips[:req.PageSize]
	}

	resp := dto.ListAIPsResponse{AIPs: make([]dto.AIPDTO, len(aips))}
	for i, aip := range aips {
		resp.AIPs[i] = dto.AIPDTO{
			ID:         aip.ID,
			TransferID: aip.TransferID,
			Title:      aip.Title,
			RA:         deref(aip.RA),
			FolderID:   deref(aip.FolderID),
			CreatedAt:  aip.CreatedAt.Format(time.RFC3339),
		}
	}

	if hasMore {
		last := aips[len(aips)-1]
		resp.NextCursor = EncodeAIPCursor(&storage.AIPCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetLocation handles GET /aips/:transfer_id/location
// Returns where to download the record's file, preferring the preservation copy
func (h *AIPHandler) GetLocation(c *gin.Context) {
	transferID := c.Param("transfer_id")
	ctx := c.Request.Context()

	aip, err := h.store.GetAIPByTransferID(ctx, transferID)
	if err != nil {
		if errors.Is(err, domain.ErrAIPNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "AIP not found"})
			return
		}
		h.logger.Error("Failed to get AIP", slog.String("transfer_id", transferID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get AIP"})
		return
	}

	bucket := h.preservationBucket
	file, err := h.store.FirstFile(ctx, aip.ID, domain.AreaPreservation)
	if errors.Is(err, domain.ErrFileNotFound) {
		h.logger.Info("No preservation file, falling back to original",
			slog.String("transfer_id", transferID),
			slog.String("aip_id", aip.ID),
		)
		bucket = h.originalsBucket
		file, err = h.store.FirstFile(ctx, aip.ID, domain.AreaOriginals)
	}
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No file associated with this AIP"})
			return
		}
		h.logger.Error("Failed to get AIP file", slog.String("aip_id", aip.ID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get AIP file"})
		return
	}

	resp := dto.LocationResponse{
		Bucket:   bucket,
		Path:     file.StoragePath,
		Filename: file.Name,
	}

	if h.objects != nil {
		info, err := h.objects.Stat(ctx, bucket, file.StoragePath)
		if err != nil {
			h.logger.Warn("Object metadata unavailable",
				slog.String("bucket", bucket),
				slog.String("path", file.StoragePath),
				slog.String("error", err.Error()),
			)
		} else {
			size := info.Size
			resp.Size = &size
			resp.LastModified = info.LastModified.UTC().Format(time.RFC3339)
		}
	}

	c.JSON(http.StatusOK, resp)
}

func toFiles(in []dto.FileDTO) []model.File {
	files := make([]model.File, len(in))
	for i, f := range in {
		files[i] = model.File{
			Name:        f.Name,
			StoragePath: f.StoragePath,
			Checksum:    f.Checksum,
			Format:      f.Format,
		}
	}
	return files
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

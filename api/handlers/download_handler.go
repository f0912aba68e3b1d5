package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	jobs   *app.JobManager
	logger *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(jobs *app.JobManager, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// AddDownloadRequest represents a request to start a download
type AddDownloadRequest struct {
	URL         string `json:"url"`
	Mode        string `json:"mode"`
	AudioFormat string `json:"audio_format,omitempty"`
	VideoFormat string `json:"video_format,omitempty"`
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var req AddDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": domain.KindValidation})
		return
	}

	job, err := h.jobs.Submit(domain.NewDownloadRequest(
		req.URL,
		domain.Mode(req.Mode),
		domain.AudioFormat(req.AudioFormat),
		domain.VideoFormat(req.VideoFormat),
	))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": domain.KindValidation})
			return
		}
		h.logger.Error("Failed to start download", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListDownloads handles GET /api/v1/downloads, optionally filtered by ?phase=
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	jobs := h.jobs.List()

	if phase := c.Query("phase"); phase != "" {
		filtered := make([]*domain.Job, 0, len(jobs))
		for _, job := range jobs {
			if string(job.Phase) == phase {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}

	c.JSON(http.StatusOK, jobs)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats := h.jobs.Stats()

	total := 0
	for _, n := range stats {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "by_phase": stats})
}

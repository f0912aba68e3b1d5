package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pydown-go/internal/domain"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// HealthHandler handles health check and capability requests
type HealthHandler struct {
	config *domain.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(config *domain.Config) *HealthHandler {
	return &HealthHandler{
		config: config,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Variant string `json:"variant"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Variant: h.config.Variant.Name,
	})
}

// FormatsResponse lists what the active variant can produce
type FormatsResponse struct {
	Variant            string               `json:"variant"`
	Modes              []domain.Mode        `json:"modes"`
	AudioFormats       []domain.AudioFormat `json:"audio_formats"`
	VideoFormats       []domain.VideoFormat `json:"video_formats"`
	DefaultAudioFormat domain.AudioFormat   `json:"default_audio_format"`
	DefaultVideoFormat domain.VideoFormat   `json:"default_video_format"`
}

// Formats handles GET /api/v1/formats
func (h *HealthHandler) Formats(c *gin.Context) {
	v := h.config.Variant
	c.JSON(http.StatusOK, FormatsResponse{
		Variant:            v.Name,
		Modes:              []domain.Mode{domain.ModeAudio, domain.ModeVideo},
		AudioFormats:       v.AvailableAudioFormats,
		VideoFormats:       v.AvailableVideoFormats,
		DefaultAudioFormat: v.DefaultAudioFormat,
		DefaultVideoFormat: v.DefaultVideoFormat,
	})
}

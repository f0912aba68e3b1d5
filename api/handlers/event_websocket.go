package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/domain"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Local tool, any origin may watch
	},
}

// EventWebSocketHandler streams a job's progress events over a WebSocket
type EventWebSocketHandler struct {
	jobs   *app.JobManager
	logger *zap.Logger
}

// NewEventWebSocketHandler creates a new event stream handler
func NewEventWebSocketHandler(jobs *app.JobManager, logger *zap.Logger) *EventWebSocketHandler {
	return &EventWebSocketHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// HandleWebSocket handles GET /api/v1/downloads/:id/events. Past events are
// replayed, live ones follow, and the server closes after the terminal event.
func (h *EventWebSocketHandler) HandleWebSocket(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.jobs.Get(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("Event stream client connected",
		zap.String("id", id),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads only detect the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.jobs.Watch(ctx, id, func(ev domain.ProgressEvent) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(ev)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug("Event stream ended", zap.String("id", id), zap.Error(err))
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "download finished"))
}

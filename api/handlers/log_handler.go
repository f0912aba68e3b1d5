package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pydown-go/pkg/logger"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// LogHandler serves the persisted download log. A nil reader means the
// active variant does not persist its log.
type LogHandler struct {
	logReader *logger.LogReader
}

// NewLogHandler creates a new log handler
func NewLogHandler(logReader *logger.LogReader) *LogHandler {
	return &LogHandler{
		logReader: logReader,
	}
}

// GetLogs handles GET /api/v1/logs?limit=N&q=text
func (h *LogHandler) GetLogs(c *gin.Context) {
	if h.logReader == nil {
		c.JSON(http.StatusOK, gin.H{"persisted": false, "lines": []string{}})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	var lines []string
	if query := c.Query("q"); query != "" {
		lines, err = h.logReader.SearchLines(query, limit)
	} else {
		lines, err = h.logReader.ReadLines(limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"persisted": true,
		"path":      h.logReader.Path(),
		"count":     len(lines),
		"lines":     lines,
	})
}

// ExportLogs handles GET /api/v1/logs/export, sending the whole log as text
func (h *LogHandler) ExportLogs(c *gin.Context) {
	if h.logReader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "log is not persisted"})
		return
	}

	lines, err := h.logReader.ReadLines(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	body := strings.Join(lines, "\n")
	if body != "" {
		body += "\n"
	}
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(h.logReader.Path()))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ghostreact/markapp/internal/middleware"
	"github.com/ghostreact/markapp/internal/tasks"
)

type reportRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// RequestAttendanceReport enqueues a CSV export onto the maintenance
// stream; the worker renders it and uploads the file to object
// storage.
func (h HandlerSet) RequestAttendanceReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from_and_to_required"})
		return
	}
	for _, dateStr := range []string{req.From, req.To} {
		if _, err := parseDate(dateStr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
			return
		}
	}

	claims, _ := middleware.ClaimsFrom(c)

	taskID, err := h.cache.XAdd(c.Request.Context(), &redis.XAddArgs{
		Stream: h.cfg.Worker.Stream,
		Values: map[string]any{
			"type":         tasks.TypeAttendanceExport,
			"from":         req.From,
			"to":           req.To,
			"requested_by": claims.Subject,
		},
	}).Result()
	if err != nil {
		h.internalError(c, err, "enqueue report failed")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "taskId": taskID})
}

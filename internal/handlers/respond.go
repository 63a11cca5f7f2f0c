package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/repository"
)

// internalError logs the real failure and hands the client a generic
// 500; storage and codec errors never leak.
func (h HandlerSet) internalError(c *gin.Context, err error, msg string) {
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
}

// writeError maps repository sentinels onto the error taxonomy:
// duplicates to 409, missing entities to 404, anything else to 500.
func (h HandlerSet) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate"})
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrDepartmentNotFound),
		errors.Is(err, repository.ErrBranchNotFound),
		errors.Is(err, repository.ErrStudentNotFound),
		errors.Is(err, repository.ErrTeacherNotFound),
		errors.Is(err, repository.ErrAttendanceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		h.internalError(c, err, msg)
	}
}

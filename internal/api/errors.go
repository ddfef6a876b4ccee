package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendly/internal/attendance"
	"attendly/internal/observability"
)

func statusFor(kind attendance.Kind) int {
	switch kind {
	case attendance.KindNotFound:
		return http.StatusNotFound
	case attendance.KindInvalidInput:
		return http.StatusBadRequest
	case attendance.KindConflict:
		return http.StatusConflict
	case attendance.KindForbidden:
		return http.StatusForbidden
	case attendance.KindUnauthenticated:
		return http.StatusUnauthorized
	case attendance.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error response. Server-side failures are logged
// and reported; their details never reach the client.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := attendance.KindOf(err)
	status := statusFor(kind)
	if status < http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": attendance.Message(err)})
		return
	}

	h.log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
	observability.CaptureErr(err)
	if kind == attendance.KindStoreUnavailable {
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(status, gin.H{"error": "storage temporarily unavailable, retry"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/swcolombo/waitlist-api/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"ok": false, "message": message})
}

// statusFor maps a submission failure onto an HTTP status
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case apperrors.Is(err, apperrors.ErrValidation),
		apperrors.Is(err, apperrors.ErrSpamRejected),
		apperrors.Is(err, apperrors.ErrRemote):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrInFlight):
		return http.StatusConflict
	case apperrors.Is(err, apperrors.ErrTransport):
		return http.StatusBadGateway
	case apperrors.Is(err, apperrors.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dermatrack-backend/internal/pkg/apperr"
)

// statusOf maps the service error classification to an HTTP status. Every
// apperr.Kind must appear here; unmapped kinds fall back to 500.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPrerequisiteMissing:
		return http.StatusPreconditionFailed
	case apperr.KindAlreadyStarted, apperr.KindAlreadyReviewed, apperr.KindConflict, apperr.KindDayMismatch, apperr.KindCapReached:
		return http.StatusConflict
	case apperr.KindUpstreamUnavailable:
		return http.StatusBadGateway
	case apperr.KindUpstreamInvalid:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError renders a service error as the standard envelope, using
// the error's kind for both the HTTP status and the machine code.
func RespondAppError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	RespondError(c, statusOf(kind), string(kind), err)
}

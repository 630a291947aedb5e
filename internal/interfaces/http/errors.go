package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/staff-evaluation/internal/domain/entity"
)

// statusFor maps engine error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidWindow), errors.Is(err, entity.ErrEmptyRoster):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrIncompleteScoring):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrDuplicateAssignment),
		errors.Is(err, entity.ErrDeadlinePassed),
		errors.Is(err, entity.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, entity.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Internal errors are logged and
// their text is not exposed.
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"operation", op,
			"request_id", c.GetString(requestIDKey),
			"error", err)
		message = "internal server error"
	}

	c.JSON(status, Response{
		Success: false,
		Error:   message,
	})
}

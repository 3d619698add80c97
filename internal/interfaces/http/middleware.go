package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"github.com/garyjia/training-reimbursement/pkg/utils"
)

// UserHeader carries the acting username. Authentication happens in front of this service.
const UserHeader = "X-User"

const actorKey = "actor"

// requireUser rejects API calls that do not name a valid acting user
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(UserHeader)
		if err := utils.ValidateUsername(user); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid " + UserHeader + " header",
			})
			return
		}
		c.Set(actorKey, user)
		c.Next()
	}
}

func actor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// statusFor maps workflow errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainwf.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrInvalidState),
		errors.Is(err, domainwf.ErrConflict),
		errors.Is(err, domainwf.ErrInvalidTransition),
		errors.Is(err, domainwf.ErrGuardFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as a JSON response. Internal failures are logged and not echoed.
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err, "user", actor(c))
		message = "internal error"
		if errors.Is(err, domainwf.ErrWorkflowIntegrity) {
			message = "workflow integrity fault"
		}
	} else {
		h.logger.Warn("Request rejected", "op", op, "status", status, "error", err, "user", actor(c))
	}
	c.JSON(status, Response{Success: false, Error: message})
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/owner-console/internal/monitoring"
	"github.com/teresa-solution/owner-console/internal/payment"
	"github.com/teresa-solution/owner-console/internal/ratelimit"
	"github.com/teresa-solution/owner-console/internal/service"
	"github.com/teresa-solution/owner-console/internal/store"
)

func statusOf(err error) int {
	var exceeded *ratelimit.ExceededError
	var upstream *payment.APIError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, monitoring.ErrInvalidAlert),
		errors.Is(err, payment.ErrUnknownExport):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	case errors.As(err, &exceeded):
		return http.StatusTooManyRequests
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// intQuery reads a positive integer query parameter, falling back to def.
func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

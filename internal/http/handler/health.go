package handler

import (
	"context"
	"net/http"
	"time"

	"gallery-service/internal/types"

	"github.com/labstack/echo/v4"
)

const (
	healthCheckTimeout = 3 * time.Second
	statusOK           = "ok"
	statusDegraded     = "degraded"
)

type HealthHandler struct {
	checkers []types.HealthChecker
}

func NewHealthHandler(checkers ...types.HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health pings every dependency and reports 503 if any is down. Failure
// detail stays in the server log.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: statusOK, Checks: make(map[string]string, len(h.checkers))}
	for _, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			c.Logger().Warnf("health check %s failed: %v", checker.Name(), err)
			resp.Status = statusDegraded
			resp.Checks[checker.Name()] = statusDegraded
			continue
		}
		resp.Checks[checker.Name()] = statusOK
	}

	if resp.Status != statusOK {
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"stepout/internal/delivery/http/helpers"
)

// Pinger is any dependency whose liveness the health check reports.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthController struct {
	Logger *slog.Logger
	Checks map[string]Pinger
}

func NewHealthController(logger *slog.Logger, checks map[string]Pinger) *HealthController {
	return &HealthController{
		Logger: logger,
		Checks: checks,
	}
}

// HealthResponse reports overall and per-dependency status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data: HealthResponse"
// @Failure 503 {object} helpers.APIResponse "data: HealthResponse"
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, p := range c.Checks {
		if err := p.PingContext(ctx); err != nil {
			c.Logger.WarnContext(ctx, "health check failed", "check", name, "err", err)
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}
	helpers.WriteJSONSuccess(w, status, resp)
}

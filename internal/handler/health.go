package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB.  Other stores are adapted with PingFunc.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports whether the service and its backing stores are
// reachable.  It is used by load balancers and monitoring systems.
type HealthHandler struct {
	Checks map[string]Pinger
	Log    *zap.Logger
}

// Health returns plain text "ok" with 200 when every check passes and
// "unavailable" with 503 otherwise.  Failing checks are logged by name.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	for name, p := range h.Checks {
		if err := p.PingContext(ctx); err != nil {
			h.Log.Warn("health check failed", zap.String("check", name), zap.Error(err))
			return c.String(http.StatusServiceUnavailable, "unavailable")
		}
	}
	return c.String(http.StatusOK, "ok")
}

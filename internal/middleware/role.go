package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes
	"net/url"

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/metrics"
	"github.com/iliyamo/studio-booking/internal/model"
)

// ForbiddenMessage is the whole body of every 403 response.  It says nothing
// about why access was denied.
const ForbiddenMessage = "You do not have permission to access this page."

// RequireRole returns a middleware that lets the request through only when
// the caller is authenticated and their profile role is at least required.
// Everyone else gets a 403 before the handler runs.  The comparison follows
// the role order public < member < operator < admin.  A role outside that
// order is never coerced: it is logged and answered with 500.  It assumes
// LoadSession has already run.
func RequireRole(required model.Role, m *metrics.Metrics, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				m.Forbidden(required.String())
				return c.String(http.StatusForbidden, ForbiddenMessage)
			}
			allowed, err := u.Profile.HasMinimumRole(required)
			if err != nil {
				log.Error("role check failed",
					zap.Uint64("user_id", u.ID),
					zap.String("required", required.String()),
					zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}
			if !allowed {
				m.Forbidden(required.String())
				return c.String(http.StatusForbidden, ForbiddenMessage)
			}
			// Otherwise call the next handler in the chain
			return next(c)
		}
	}
}

// RequireLogin redirects anonymous callers to loginPath with a next
// parameter pointing back at the requested URL.
func RequireLogin(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentUser(c); !ok {
				return c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request().URL.RequestURI()))
			}
			return next(c)
		}
	}
}

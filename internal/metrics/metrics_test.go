package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/nope", func(c echo.Context) error { return echo.NewHTTPError(http.StatusForbidden) })

	for _, p := range []string{"/ping", "/ping", "/nope"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	m.LoginAttempt("failure")
	m.Forbidden("member")
	m.EventPublished("user.created", errors.New("down"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, `studio_http_requests_total{method="GET",route="/ping",status="200"} 2`)
	assert.Contains(t, out, `studio_http_requests_total{method="GET",route="/nope",status="403"} 1`)
	assert.Contains(t, out, `studio_login_attempts_total{result="failure"} 1`)
	assert.Contains(t, out, `studio_forbidden_total{required_role="member"} 1`)
	assert.Contains(t, out, `studio_events_published_total{status="error",type="user.created"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.LoginAttempt("success")
	m.Forbidden("admin")
	m.EventPublished("x", nil)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

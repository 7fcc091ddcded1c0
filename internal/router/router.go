package router // package router defines how HTTP routes are registered for the site

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/handler"    // page, auth and admin handlers
	"github.com/iliyamo/studio-booking/internal/metrics"    // request counters
	"github.com/iliyamo/studio-booking/internal/middleware" // session loading and role enforcement
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// LoginPath is where RequireLogin sends anonymous callers.
const LoginPath = "/accounts/login/"

// SessionStore resolves session cookies and issues/revokes sessions.
type SessionStore interface {
	middleware.SessionResolver
	handler.SessionStore
}

// Deps holds everything the routes need.  Metrics and Events may be nil.
type Deps struct {
	Cfg         config.Config
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Renderer    echo.Renderer
	Sessions    SessionStore
	Users       handler.UserStore
	Accounts    handler.AccountCreator
	Memberships handler.MembershipStore
	Invites     handler.InviteStore
	Plans       handler.PlanStore
	Requests    handler.SessionRequestStore
	Booked      handler.BookedSessionStore
	Events      *queue.Notifier
	Checks      map[string]handler.Pinger
	Now         func() time.Time
}

// New builds the Echo instance with the shared middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	if d.Now == nil {
		d.Now = time.Now
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = d.Renderer

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(d.Metrics.Middleware())
	if d.Cfg.CSRFEnabled {
		e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
			TokenLookup:    "header:X-CSRF-Token,form:_csrf",
			ContextKey:     "csrf",
			CookieName:     "_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   d.Cfg.CookieSecure,
			CookieSameSite: http.SameSiteLaxMode,
			Skipper: func(c echo.Context) bool {
				p := c.Path()
				return p == "/healthz" || p == "/metrics"
			},
		}))
	}
	e.Use(middleware.LoadSession(d.Cfg.SessionCookie, d.Sessions, d.Users, d.Log))

	RegisterRoutes(e, &handler.HealthHandler{Checks: d.Checks, Log: d.Log})
	if d.Cfg.MetricsEnabled && d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	auth := handler.NewAuthHandler(d.Cfg, d.Users, d.Sessions, d.Metrics, d.Log)
	auth.Now = d.Now
	RegisterAuth(e, auth)

	pages := handler.NewPageHandler(d.Users, d.Memberships, d.Cfg.AdminPath, d.Log)
	pages.Now = d.Now
	RegisterPages(e, pages, d.Metrics, d.Log)

	RegisterAdmin(e, d.Cfg.AdminPath, &handler.AdminHandler{
		Users:       d.Users,
		Accounts:    d.Accounts,
		Sessions:    d.Sessions,
		Invites:     d.Invites,
		Plans:       d.Plans,
		Memberships: d.Memberships,
		Requests:    d.Requests,
		Booked:      d.Booked,
		Events:      d.Events,
		Log:         d.Log,
		Now:         d.Now,
		NewToken:    utils.NewInviteToken,
	}, d.Metrics, d.Log)
	return e
}

// RegisterRoutes registers the unauthenticated health check used by load
// balancers and monitoring systems.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the login and logout pages.  Logout requires a
// session; anonymous callers are sent to the login form.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.GET(LoginPath, a.LoginForm)
	e.POST(LoginPath, a.Login)

	logout := e.Group("/accounts/logout", middleware.RequireLogin(LoginPath))
	logout.GET("/", a.Logout)
	logout.POST("/", a.Logout)
}

// RegisterPages registers the dashboard and the member profile.
func RegisterPages(e *echo.Echo, p *handler.PageHandler, m *metrics.Metrics, log *zap.Logger) {
	e.GET("/", p.Home)

	member := e.Group("/member-profile", middleware.RequireRole(model.RoleMember, m, log))
	member.GET("/", p.Profile)
	member.POST("/", p.UpdateProfile)
}

// adminPrefix turns "/admin/" into the group prefix "/admin".
func adminPrefix(path string) string {
	return strings.TrimSuffix(config.NormalizeAdminPath(path), "/")
}

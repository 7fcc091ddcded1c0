package router

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/metrics"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

// RegisterAdmin registers the JSON admin console under adminPath.
// All routes require an authenticated admin.
func RegisterAdmin(e *echo.Echo, adminPath string, a *handler.AdminHandler, m *metrics.Metrics, log *zap.Logger) {
	g := e.Group(
		adminPrefix(adminPath),
		middleware.RequireRole(model.RoleAdmin, m, log),
	)
	g.GET("/", a.Index)

	// ---- Users ----
	g.GET("/users", a.ListUsers)
	g.POST("/users", a.CreateUser)
	g.GET("/users/:id", a.GetUser)
	g.PUT("/users/:id/role", a.SetUserRole)
	g.PUT("/users/:id/profile", a.UpdateUserProfile)
	g.DELETE("/users/:id", a.DeleteUser)

	// ---- Memberships ----
	g.GET("/memberships", a.ListMemberships)
	g.GET("/users/:id/membership", a.GetMembership)
	g.PUT("/users/:id/membership", a.PutMembership)
	g.DELETE("/users/:id/membership", a.DeleteMembership)

	// ---- Plans ----
	g.GET("/plans", a.ListPlans)
	g.POST("/plans", a.CreatePlan)
	g.GET("/plans/:id", a.GetPlan)
	g.PUT("/plans/:id", a.UpdatePlan)
	g.DELETE("/plans/:id", a.DeletePlan)

	// ---- Invites ----
	g.GET("/invites", a.ListInvites)
	g.POST("/invites", a.CreateInvite)
	g.POST("/invites/:id/use", a.UseInvite)
	g.DELETE("/invites/:id", a.DeleteInvite)

	// ---- Pending session requests ----
	g.GET("/session-requests", a.ListSessionRequests)
	g.POST("/session-requests", a.CreateSessionRequest)
	g.GET("/session-requests/:id", a.GetSessionRequest)
	g.PUT("/session-requests/:id/status", a.UpdateSessionRequestStatus)
	g.DELETE("/session-requests/:id", a.DeleteSessionRequest)

	// ---- Booked sessions ----
	g.GET("/booked-sessions", a.ListBookedSessions)
	g.POST("/booked-sessions", a.CreateBookedSession)
	g.GET("/booked-sessions/:id", a.GetBookedSession)
	g.PUT("/booked-sessions/:id/status", a.UpdateBookedSessionStatus)
	g.PUT("/booked-sessions/:id/start", a.RescheduleBookedSession)
	g.DELETE("/booked-sessions/:id", a.DeleteBookedSession)
}

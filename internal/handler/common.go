package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
	"github.com/iliyamo/studio-booking/internal/utils"
	"github.com/iliyamo/studio-booking/internal/view"
)

// dbTimeout bounds the database work of one request.
const dbTimeout = 5 * time.Second

// UserStore is the subset of repository.UserRepo the handlers use.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	List(ctx context.Context, f repository.UserFilter) ([]model.User, error)
	UpdateContact(ctx context.Context, u model.User) error
	SetRole(ctx context.Context, userID uint64, role model.Role) error
	UpdateProfile(ctx context.Context, userID uint64, phone, stripeCustomerID *string) error
	TouchLastLogin(ctx context.Context, userID uint64, at time.Time) error
	Delete(ctx context.Context, id uint64) error
}

// MembershipStore is the subset of repository.MembershipRepo the handlers use.
type MembershipStore interface {
	GetByUser(ctx context.Context, userID uint64) (model.UserMembership, error)
	List(ctx context.Context, active *bool) ([]model.UserMembership, error)
	Upsert(ctx context.Context, m *model.UserMembership) error
	Delete(ctx context.Context, userID uint64) error
}

// InviteStore is the subset of repository.InviteRepo the handlers use.
type InviteStore interface {
	Create(ctx context.Context, inv *model.Invite) error
	GetByID(ctx context.Context, id uint64) (model.Invite, error)
	List(ctx context.Context, query string) ([]model.Invite, error)
	MarkUsed(ctx context.Context, id uint64, now time.Time) error
	Delete(ctx context.Context, id uint64) error
}

// PlanStore is the subset of repository.PlanRepo the handlers use.
type PlanStore interface {
	Create(ctx context.Context, p *model.MembershipPlan) error
	GetByID(ctx context.Context, id uint64) (model.MembershipPlan, error)
	List(ctx context.Context, query string) ([]model.MembershipPlan, error)
	Update(ctx context.Context, p model.MembershipPlan) error
	Delete(ctx context.Context, id uint64) error
}

// SessionRequestStore is the subset of repository.SessionRequestRepo the handlers use.
type SessionRequestStore interface {
	Create(ctx context.Context, req *model.PendingSessionRequest) error
	GetByID(ctx context.Context, id uint64) (model.PendingSessionRequest, error)
	List(ctx context.Context, f repository.SessionRequestFilter) ([]model.PendingSessionRequest, error)
	UpdateStatus(ctx context.Context, id uint64, next model.SessionRequestStatus) (model.SessionRequestStatus, error)
	Delete(ctx context.Context, id uint64) error
}

// BookedSessionStore is the subset of repository.BookedSessionRepo the handlers use.
type BookedSessionStore interface {
	Create(ctx context.Context, s *model.BookedSession) error
	GetByID(ctx context.Context, id uint64) (model.BookedSession, error)
	List(ctx context.Context, f repository.BookedSessionFilter) ([]model.BookedSession, error)
	UpdateStatus(ctx context.Context, id uint64, next model.BookedStatus) (model.BookedStatus, error)
	Reschedule(ctx context.Context, id uint64, start time.Time) error
	Delete(ctx context.Context, id uint64) error
}

// SessionStore issues and revokes login sessions.
type SessionStore interface {
	Create(ctx context.Context, userID uint64) (utils.SessionToken, error)
	Revoke(ctx context.Context, s session.Session) error
	RevokeAll(ctx context.Context, userID uint64) error
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, model.Invalid("invalid " + name)
	}
	return n, nil
}

// actorID returns the id of the authenticated caller, or 0.
func actorID(c echo.Context) uint64 {
	if u, ok := middleware.CurrentUser(c); ok {
		return u.ID
	}
	return 0
}

// pageFor fills the layout fields for the caller.  A role that cannot be
// ranked is returned as an error rather than shown as "no access".
func pageFor(c echo.Context) (view.Page, error) {
	p := view.Page{CSRFToken: csrfToken(c)}
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return p, nil
	}
	p.IsLoggedIn = true
	p.Username = u.Username
	var err error
	if p.IsAdmin, err = u.Profile.HasMinimumRole(model.RoleAdmin); err != nil {
		return p, err
	}
	if p.IsOperator, err = u.Profile.HasMinimumRole(model.RoleOperator); err != nil {
		return p, err
	}
	if p.IsMember, err = u.Profile.HasMinimumRole(model.RoleMember); err != nil {
		return p, err
	}
	return p, nil
}

// csrfToken returns the token set by echo's CSRF middleware, if enabled.
func csrfToken(c echo.Context) string {
	s, _ := c.Get("csrf").(string)
	return s
}

// apiError maps domain and repository errors onto JSON responses for the
// admin console.  Unexpected errors are logged and answered with 500.
func apiError(c echo.Context, log *zap.Logger, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrInviteNotFound),
		errors.Is(err, repository.ErrPlanNotFound),
		errors.Is(err, repository.ErrMembershipNotFound),
		errors.Is(err, repository.ErrSessionRequestNotFound),
		errors.Is(err, repository.ErrBookedSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalid),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInviteRole):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error("admin request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

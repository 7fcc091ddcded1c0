package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// AccountCreator creates users with hashed passwords.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in service.NewAccount) (model.User, error)
}

// AdminHandler serves the JSON admin console.  Every route is mounted behind
// RequireRole(admin).
type AdminHandler struct {
	Users       UserStore
	Accounts    AccountCreator
	Sessions    SessionStore
	Invites     InviteStore
	Plans       PlanStore
	Memberships MembershipStore
	Requests    SessionRequestStore
	Booked      BookedSessionStore
	Events      *queue.Notifier
	Log         *zap.Logger
	Now         func() time.Time
	NewToken    func() (string, error)
}

// ----- DTOs -----

type createUserReq struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type roleReq struct {
	Role string `json:"role"`
}

// profileReq leaves a field untouched when it is absent; an empty string
// clears it.
type profileReq struct {
	Phone            *string `json:"phone"`
	StripeCustomerID *string `json:"stripe_customer_id"`
}

func parseRoleInput(s string) (model.Role, error) {
	r, err := model.ParseRole(s)
	if err != nil {
		return 0, model.Invalid(fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

func (h *AdminHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func (h *AdminHandler) notify(c echo.Context, t queue.EventType, data map[string]any) {
	h.Events.Notify(c.Request().Context(), queue.NewEvent(t, actorID(c), data))
}

// Index lists the resources of the admin console.
func (h *AdminHandler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"resources": []string{
		"users", "session-requests", "booked-sessions", "plans", "memberships", "invites",
	}})
}

// ListUsers supports ?q= (username/email substring) and ?role=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	f := repository.UserFilter{Query: c.QueryParam("q")}
	if s := strings.TrimSpace(c.QueryParam("role")); s != "" {
		r, err := parseRoleInput(s)
		if err != nil {
			return apiError(c, h.Log, err)
		}
		f.Role = &r
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	users, err := h.Users.List(ctx, f)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// CreateUser creates a user and its profile.  The role defaults to public.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := model.RolePublic
	if strings.TrimSpace(req.Role) != "" {
		r, err := parseRoleInput(req.Role)
		if err != nil {
			return apiError(c, h.Log, err)
		}
		role = r
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.Accounts.CreateAccount(ctx, service.NewAccount{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		return apiError(c, h.Log, err)
	}
	h.notify(c, queue.EventUserCreated, map[string]any{"user_id": u.ID, "username": u.Username, "role": u.Profile.Role.String()})
	return c.JSON(http.StatusCreated, u)
}

// SetUserRole changes a user's role and ends their sessions so the new role
// applies from their next login.
func (h *AdminHandler) SetUserRole(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, err := parseRoleInput(req.Role)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Users.SetRole(ctx, id, role); err != nil {
		return apiError(c, h.Log, err)
	}
	h.revokeSessions(ctx, id)
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateUserProfile edits the phone and billing customer on a user's
// profile.
func (h *AdminHandler) UpdateUserProfile(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}

	model.ContactUpdate{Phone: req.Phone}.Apply(&u)
	if len(u.Profile.PhoneValue()) > model.MaxPhoneLen {
		return apiError(c, h.Log, model.Invalid("phone is too long"))
	}
	if req.StripeCustomerID != nil {
		u.Profile.StripeCustomerID = nil
		if v := strings.TrimSpace(*req.StripeCustomerID); v != "" {
			u.Profile.StripeCustomerID = &v
		}
	}
	if err := h.Users.UpdateProfile(ctx, id, u.Profile.Phone, u.Profile.StripeCustomerID); err != nil {
		return apiError(c, h.Log, err)
	}
	u, err = h.Users.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUser removes a user, cascading to profile and membership.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return apiError(c, h.Log, err)
	}
	h.revokeSessions(ctx, id)
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) revokeSessions(ctx context.Context, userID uint64) {
	if err := h.Sessions.RevokeAll(ctx, userID); err != nil {
		h.Log.Warn("revoke sessions failed", zap.Uint64("user_id", userID), zap.Error(err))
	}
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/view"
)

// PageHandler serves the HTML pages other than login.
type PageHandler struct {
	Users       UserStore
	Memberships MembershipStore
	AdminPath   string
	Log         *zap.Logger
	Now         func() time.Time
}

func NewPageHandler(users UserStore, memberships MembershipStore, adminPath string, log *zap.Logger) *PageHandler {
	return &PageHandler{Users: users, Memberships: memberships, AdminPath: adminPath, Log: log, Now: time.Now}
}

// Home renders the dashboard.  It is public and only reads: the role flags
// are all false for anonymous callers.
func (h *PageHandler) Home(c echo.Context) error {
	page, err := pageFor(c)
	if err != nil {
		h.Log.Error("rank caller role", zap.Error(err))
		return err
	}
	return c.Render(http.StatusOK, view.PageHome, view.HomeData{
		Page:        page,
		CurrentTime: h.Now().UTC(),
		AdminPath:   h.AdminPath,
	})
}

// Profile shows the caller's contact details and membership status.  The
// route is gated to members and above.
func (h *PageHandler) Profile(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.String(http.StatusForbidden, middleware.ForbiddenMessage)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	status, err := h.membershipStatus(ctx, u.ID)
	if err != nil {
		return err
	}
	page, err := pageFor(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, view.PageProfile, view.ProfileData{
		Page:             page,
		User:             *u,
		MembershipStatus: status,
		Updated:          c.QueryParam("updated") == "1",
	})
}

// UpdateProfile saves the submitted contact fields.  Fields missing from the
// form keep their stored value; an empty phone clears it.  Both tables are
// written in one transaction and success redirects back to the page.
func (h *PageHandler) UpdateProfile(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.String(http.StatusForbidden, middleware.ForbiddenMessage)
	}
	if err := c.Request().ParseForm(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	form := c.Request().PostForm
	field := func(name string) *string {
		if vals, ok := form[name]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}

	updated := *u
	model.ContactUpdate{
		FirstName: field("first_name"),
		LastName:  field("last_name"),
		Email:     field("email"),
		Phone:     field("phone"),
	}.Apply(&updated)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if msg := validateContact(updated); msg != "" {
		status, err := h.membershipStatus(ctx, u.ID)
		if err != nil {
			return err
		}
		page, err := pageFor(c)
		if err != nil {
			return err
		}
		return c.Render(http.StatusBadRequest, view.PageProfile, view.ProfileData{
			Page:             page,
			User:             updated,
			MembershipStatus: status,
			Error:            msg,
		})
	}

	if err := h.Users.UpdateContact(ctx, updated); err != nil {
		h.Log.Error("update profile failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		return err
	}
	return c.Redirect(http.StatusFound, "/member-profile/?updated=1")
}

// membershipStatus maps a missing membership row to "Unpaid".
func (h *PageHandler) membershipStatus(ctx context.Context, userID uint64) (string, error) {
	m, err := h.Memberships.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrMembershipNotFound) {
		return model.MembershipStatus(nil), nil
	}
	if err != nil {
		return "", err
	}
	return model.MembershipStatus(&m), nil
}

func validateContact(u model.User) string {
	if len(u.Profile.PhoneValue()) > model.MaxPhoneLen {
		return "Phone number is too long."
	}
	if u.Email != "" && !validEmail(u.Email) {
		return "Enter a valid email address."
	}
	if len(u.FirstName) > 150 || len(u.LastName) > 150 {
		return "Name is too long."
	}
	return ""
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

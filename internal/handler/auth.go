package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/config"     // app configuration
	"github.com/iliyamo/studio-booking/internal/metrics"    // login counters
	"github.com/iliyamo/studio-booking/internal/middleware" // current session lookup
	"github.com/iliyamo/studio-booking/internal/repository" // DB repositories
	"github.com/iliyamo/studio-booking/internal/utils"      // password checks
	"github.com/iliyamo/studio-booking/internal/view"
)

// LoginFailedMessage is shown for every failed login.  Unknown users, wrong
// passwords and inactive accounts are indistinguishable to the caller.
const LoginFailedMessage = "Invalid credentials. Please try again."

// AuthHandler bundles dependencies for the login and logout pages.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Now      func() time.Time
}

func NewAuthHandler(cfg config.Config, u UserStore, s SessionStore, m *metrics.Metrics, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Metrics: m, Log: log, Now: time.Now}
}

// LoginForm renders the empty login form.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	page, err := pageFor(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, view.PageLogin, view.LoginData{Page: page})
}

// Login checks the submitted credentials.  On success it starts a session,
// sets the cookie and redirects home; on failure it re-renders the form
// with LoginFailedMessage and no cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, ok, err := h.authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		h.Metrics.LoginAttempt("failure")
		page, err := pageFor(c)
		if err != nil {
			return err
		}
		return c.Render(http.StatusOK, view.PageLogin, view.LoginData{
			Page:         page,
			Error:        LoginFailedMessage,
			FormUsername: username,
		})
	}

	tok, err := h.Sessions.Create(ctx, uid)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     h.Cfg.SessionCookie,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	if err := h.Users.TouchLastLogin(ctx, uid, h.Now()); err != nil {
		h.Log.Warn("stamp last_login failed", zap.Uint64("user_id", uid), zap.Error(err))
	}
	h.Metrics.LoginAttempt("success")
	return c.Redirect(http.StatusFound, "/")
}

// authenticate returns the user id for valid credentials.  A bcrypt
// comparison runs even for unknown usernames so timing does not reveal
// which usernames exist.
func (h *AuthHandler) authenticate(ctx context.Context, username, password string) (uint64, bool, error) {
	if username == "" || password == "" {
		utils.BurnPasswordCheck(password)
		return 0, false, nil
	}
	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		utils.BurnPasswordCheck(password)
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) || !u.IsActive {
		return 0, false, nil
	}
	return u.ID, true, nil
}

// Logout revokes the caller's session, clears the cookie and redirects
// home.  The route is wrapped in RequireLogin so anonymous callers never
// reach it.
func (h *AuthHandler) Logout(c echo.Context) error {
	if sess, ok := middleware.CurrentSession(c); ok {
		if err := h.Sessions.Revoke(c.Request().Context(), sess); err != nil {
			return err
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     h.Cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, "/")
}

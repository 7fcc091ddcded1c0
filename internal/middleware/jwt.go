package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
)

// Context keys under which LoadSession stores the caller.
const (
	ctxUser    = "user"
	ctxSession = "session"
)

// SessionResolver resolves a cookie token to a live session.
type SessionResolver interface {
	Lookup(ctx context.Context, raw string) (session.Session, error)
}

// UserLoader loads the user a session belongs to.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// LoadSession returns an Echo middleware that reads the session cookie,
// verifies the signed token, checks that the session has not been revoked
// and injects the user into the request context.  It never rejects a
// request: callers without a valid session simply continue as anonymous and
// the role gate decides what they may see.  A user whose profile role cannot
// be read is a data error and fails the request.
func LoadSession(cookieName string, sessions SessionResolver, users UserLoader, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			ctx := c.Request().Context()

			sess, err := sessions.Lookup(ctx, cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					log.Error("session lookup failed", zap.Error(err))
				}
				return next(c)
			}

			u, err := users.GetByID(ctx, sess.UserID)
			switch {
			case errors.Is(err, repository.ErrUserNotFound):
				return next(c)
			case errors.Is(err, model.ErrUnknownRole):
				log.Error("user profile has no valid role", zap.Uint64("user_id", sess.UserID), zap.Error(err))
				return err
			case err != nil:
				log.Error("load session user failed", zap.Uint64("user_id", sess.UserID), zap.Error(err))
				return err
			}
			if !u.IsActive {
				return next(c)
			}

			c.Set(ctxUser, &u)
			c.Set(ctxSession, sess)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ctxUser).(*model.User)
	return u, ok && u != nil
}

// CurrentSession returns the caller's session, if any.
func CurrentSession(c echo.Context) (session.Session, bool) {
	s, ok := c.Get(ctxSession).(session.Session)
	return s, ok
}

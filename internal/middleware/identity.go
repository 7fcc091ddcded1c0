package middleware

// identity.go defines helper functions shared across middleware files.  It
// provides a userID extraction function used to tag log lines with the
// caller.  When no user is authenticated, "guest" is returned.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user's id as a string, or "guest".
func userID(c echo.Context) string {
	u, ok := CurrentUser(c)
	if !ok {
		return "guest"
	}
	return strconv.FormatUint(u.ID, 10)
}

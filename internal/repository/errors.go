// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a write violates a unique constraint
// (username, invite email/token, subscription id, one membership per user).
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// Not-found sentinels, one per entity.  A missing row is an expected
// outcome for callers, not a crash.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrInviteNotFound         = errors.New("invite not found")
	ErrPlanNotFound           = errors.New("membership plan not found")
	ErrMembershipNotFound     = errors.New("membership not found")
	ErrSessionRequestNotFound = errors.New("session request not found")
	ErrBookedSessionNotFound  = errors.New("booked session not found")
)

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

// mysqlForeignKeyMissing is raised when a referenced parent row is absent.
const mysqlForeignKeyMissing = 1452

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlForeignKeyMissing
}

// translate maps unique-key violations to ErrConflict and leaves every other
// error untouched.
func translate(err error) error {
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

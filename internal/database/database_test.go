package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	assert.Len(t, stmts, 7)
	for _, table := range []string{"users", "user_profile", "invite", "membership_plan", "user_membership", "pending_sessions", "booked_sessions"} {
		found := false
		for _, s := range stmts {
			if strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				found = true
			}
		}
		assert.Truef(t, found, "missing table %s", table)
	}
	for _, s := range stmts {
		assert.NotContains(t, s, "--")
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN("studio", "pw", "db", "3306", "studio")
	assert.Contains(t, dsn, "studio:pw@tcp(db:3306)/studio")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

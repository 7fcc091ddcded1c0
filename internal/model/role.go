package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned whenever a role value falls outside the known
// hierarchy.  It signals corrupt data or a programming error and must never
// be coerced into a default role.
var ErrUnknownRole = errors.New("unknown role")

// Role is a position in the studio's role hierarchy.  The numeric value is
// the rank: a larger value grants everything a smaller one does.
type Role int

const (
	RolePublic   Role = 1 // default for every newly created user
	RoleMember   Role = 2 // paying or invited studio members
	RoleOperator Role = 3 // staff who run sessions
	RoleAdmin    Role = 4 // full access including the admin console
)

var roleNames = map[Role]string{
	RolePublic:   "public",
	RoleMember:   "member",
	RoleOperator: "operator",
	RoleAdmin:    "admin",
}

// ParseRole converts the stored/lower-case name of a role into a Role.
// Surrounding whitespace is ignored but case is not folded: the column only
// ever holds the canonical lower-case names.
func ParseRole(s string) (Role, error) {
	name := strings.TrimSpace(s)
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether r is one of the four defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Rank returns the position of r in the hierarchy, or ErrUnknownRole.
func (r Role) Rank() (int, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return int(r), nil
}

// AtLeast reports whether r ranks at or above required.  Both sides are
// validated; an invalid role on either side is an error.
func (r Role) AtLeast(required Role) (bool, error) {
	have, err := r.Rank()
	if err != nil {
		return false, err
	}
	need, err := required.Rank()
	if err != nil {
		return false, err
	}
	return have >= need, nil
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// MarshalText encodes the role by name so JSON payloads carry "member"
// rather than 2.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText parses a role name.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan implements sql.Scanner for the user_profile.role and invite.role
// columns.  Unknown values fail the scan instead of silently becoming public.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrUnknownRole)
	}
	return fmt.Errorf("%w: unsupported column type %T", ErrUnknownRole, src)
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	b, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

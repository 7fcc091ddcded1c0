package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InviteTTL is how long a freshly created invite stays redeemable.
const InviteTTL = 7 * 24 * time.Hour

// InviteTokenLen is the length of invite.token (hex characters).
const InviteTokenLen = 64

// ErrInviteRole is returned when an invite is created for a role that cannot
// be granted by invitation.
var ErrInviteRole = errors.New("invites may only grant the member or operator role")

// Invite models a row of the `invite` table: a single-use, time-limited
// token that grants a role to whoever redeems it.  The email does not have
// to belong to an existing user.
//
// Fields:
//
//	ID        – primary key identifier.
//	Email     – invited address (unique).
//	Token     – opaque 64-char token (unique).
//	Role      – role granted on redemption (member or operator).
//	ExpiresAt – end of the validity window.
//	IsUsed    – set once the invite has been redeemed.
type Invite struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	IsUsed    bool      `json:"is_used"`
}

// NewInvite builds an unused invite expiring InviteTTL after now.
func NewInvite(email string, role Role, token string, now time.Time) (Invite, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Invite{}, Invalid("email is required")
	}
	if role != RoleMember && role != RoleOperator {
		return Invite{}, fmt.Errorf("%w: %s", ErrInviteRole, role)
	}
	if len(token) != InviteTokenLen {
		return Invite{}, Invalid(fmt.Sprintf("invite token must be %d characters", InviteTokenLen))
	}
	return Invite{
		Email:     email,
		Token:     token,
		Role:      role,
		ExpiresAt: now.UTC().Add(InviteTTL),
	}, nil
}

// IsValid reports whether the invite can still be redeemed at now.
func (i Invite) IsValid(now time.Time) bool {
	return !i.IsUsed && now.Before(i.ExpiresAt)
}

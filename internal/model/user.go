package model

import (
	"strings"
	"time"
)

// User represents an identity record as stored in the `users` table.
// Credentials live here; role and contact details live on the Profile,
// which every user owns exactly one of.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	PasswordHash – bcrypt hashed password (never rendered).
//	Email        – contact email, not required to be unique.
//	FirstName    – display first name.
//	LastName     – display last name.
//	IsActive     – inactive users cannot log in.
//	LastLogin    – time of the last successful login (nullable).
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
//	Profile      – the user_profile row owned by this user.
type User struct {
	ID           uint64     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Profile      Profile    `json:"profile"`
}

// Profile mirrors the `user_profile` table: a single role plus contact and
// billing references, kept apart from credential storage.
//
// Fields:
//
//	ID               – primary key identifier.
//	UserID           – owning user (unique).
//	Role             – position in the role hierarchy.
//	Phone            – optional phone number (max 15 chars).
//	StripeCustomerID – external billing customer reference (unique, nullable).
type Profile struct {
	ID               uint64  `json:"id"`
	UserID           uint64  `json:"user_id"`
	Role             Role    `json:"role"`
	Phone            *string `json:"phone,omitempty"`
	StripeCustomerID *string `json:"stripe_customer_id,omitempty"`
}

// MaxPhoneLen bounds user_profile.phone.
const MaxPhoneLen = 15

// NewUser builds a user together with its profile.  The profile always
// starts at RolePublic; promotion is a separate, explicit step.  The
// password hash must already be computed by the caller.
func NewUser(username, passwordHash, email, firstName, lastName string) User {
	return User{
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		IsActive:     true,
		Profile:      Profile{Role: RolePublic},
	}
}

// HasMinimumRole reports whether the profile's role ranks at or above
// required.  An out-of-range role on either side yields ErrUnknownRole.
func (p Profile) HasMinimumRole(required Role) (bool, error) {
	return p.Role.AtLeast(required)
}

// PhoneValue returns the phone number or "" when unset.
func (p Profile) PhoneValue() string {
	if p.Phone == nil {
		return ""
	}
	return *p.Phone
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// ContactUpdate carries the self-service fields of the profile page.  Nil
// fields keep their stored value.
type ContactUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

// Apply copies the non-nil fields of upd onto u and its profile.  An empty
// phone clears the stored number.
func (upd ContactUpdate) Apply(u *User) {
	if upd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		if phone == "" {
			u.Profile.Phone = nil
		} else {
			u.Profile.Phone = &phone
		}
	}
}

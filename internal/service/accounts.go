// Package service holds operations shared by the HTTP handlers and the CLI.
package service

import (
	"context"
	"strings"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// UserCreator persists a new user and its profile.
type UserCreator interface {
	Create(ctx context.Context, u *model.User) error
}

// NewAccount is the input for CreateAccount.
type NewAccount struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Role      model.Role
}

// Accounts creates users with hashed passwords.
type Accounts struct {
	Users      UserCreator
	BcryptCost int
}

// CreateAccount validates in, hashes the password and stores the user with
// a profile carrying in.Role (public when zero).
func (a Accounts) CreateAccount(ctx context.Context, in NewAccount) (model.User, error) {
	if strings.TrimSpace(in.Username) == "" {
		return model.User{}, model.Invalid("username is required")
	}
	if len(in.Password) < 8 {
		return model.User{}, model.Invalid("password must be at least 8 characters")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return model.User{}, model.Invalid("email is invalid")
	}
	role := in.Role
	if role == 0 {
		role = model.RolePublic
	}
	if !role.Valid() {
		return model.User{}, model.ErrUnknownRole
	}

	hash, err := utils.HashPassword(in.Password, a.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.NewUser(in.Username, hash, in.Email, in.FirstName, in.LastName)
	u.Profile.Role = role
	if err := a.Users.Create(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

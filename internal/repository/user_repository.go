package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// UserRepo persists users together with their profiles.  The two tables are
// always written in one transaction so a user never exists without exactly
// one profile.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.username, u.password_hash, u.email, u.first_name, u.last_name,
	u.is_active, u.last_login, u.created_at, u.updated_at,
	p.id, p.role, p.phone, p.stripe_customer_id`

// The profile is LEFT JOINed: a user without a profile scans a NULL role and
// fails with model.ErrUnknownRole instead of disappearing.
const userSelect = `SELECT ` + userColumns + ` FROM users u LEFT JOIN user_profile p ON p.user_id = u.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
		profileID sql.NullInt64
		phone     sql.NullString
		stripeID  sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.FirstName, &u.LastName,
		&u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
		&profileID, &u.Profile.Role, &phone, &stripeID)
	if err != nil {
		return model.User{}, err
	}
	u.LastLogin = timePtr(lastLogin)
	u.Profile.ID = uint64(profileID.Int64)
	u.Profile.UserID = u.ID
	u.Profile.Phone = stringPtr(phone)
	u.Profile.StripeCustomerID = stringPtr(stripeID)
	return u, nil
}

// Create inserts the user and its profile atomically and fills in both IDs.
// A taken username yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if strings.TrimSpace(u.Username) == "" {
		return model.Invalid("username is required")
	}
	if !u.Profile.Role.Valid() {
		return fmt.Errorf("%w: %d", model.ErrUnknownRole, int(u.Profile.Role))
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, email, first_name, last_name, is_active) VALUES (?,?,?,?,?,?)",
			u.Username, u.PasswordHash, u.Email, u.FirstName, u.LastName, u.IsActive)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		pres, err := tx.ExecContext(ctx,
			"INSERT INTO user_profile (user_id, role, phone, stripe_customer_id) VALUES (?,?,?,?)",
			id, u.Profile.Role, nullString(u.Profile.Phone), nullString(u.Profile.StripeCustomerID))
		if err != nil {
			return fmt.Errorf("create profile: %w", translate(err))
		}
		pid, err := pres.LastInsertId()
		if err != nil {
			return err
		}
		u.ID = uint64(id)
		u.Profile.ID = uint64(pid)
		u.Profile.UserID = uint64(id)
		return nil
	})
}

// GetByID fetches a user and profile by user id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE u.id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE u.username = ? LIMIT 1", strings.TrimSpace(username)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// UserFilter narrows List.  Query matches username or email.
type UserFilter struct {
	Query string
	Role  *model.Role
}

// List returns users ordered by username.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(u.username LIKE ? OR u.email LIKE ?)")
		args = append(args, likePattern(q), likePattern(q))
	}
	if f.Role != nil {
		where = append(where, "p.role = ?")
		args = append(args, *f.Role)
	}
	query := userSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.username"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateContact saves the self-service fields of u (names and email on the
// user, phone on the profile) in one transaction.  Either both rows are
// written or neither is.
func (r *UserRepo) UpdateContact(ctx context.Context, u model.User) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var id uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", u.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET first_name = ?, last_name = ?, email = ? WHERE id = ?",
			u.FirstName, u.LastName, u.Email, u.ID); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE user_profile SET phone = ? WHERE user_id = ?",
			nullString(u.Profile.Phone), u.ID); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
}

// SetRole changes the role on a user's profile.
func (r *UserRepo) SetRole(ctx context.Context, userID uint64, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %d", model.ErrUnknownRole, int(role))
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var pid uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM user_profile WHERE user_id = ? FOR UPDATE", userID).Scan(&pid)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE user_profile SET role = ? WHERE id = ?", role, pid)
		return err
	})
}

// UpdateProfile writes the admin-managed profile fields.  A stripe customer
// id already held by another profile yields ErrConflict.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID uint64, phone, stripeCustomerID *string) error {
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var pid uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM user_profile WHERE user_id = ? FOR UPDATE", userID).Scan(&pid)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE user_profile SET phone = ?, stripe_customer_id = ? WHERE id = ?",
			nullString(phone), nullString(stripeCustomerID), pid)
		return err
	})
	return translate(err)
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, userID uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UTC(), userID)
	return err
}

// Delete removes a user.  The profile and membership rows cascade; booked
// sessions keep their row with booked_by_id set to NULL.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

// requireAffected turns a zero-row write into notFound.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/studio-booking/internal/model"
)

// MembershipRepo manages the one-per-user membership rows.
type MembershipRepo struct{ DB *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{DB: db} }

const membershipSelect = `SELECT id, user_id, plan_id, start_date, end_date, active,
	stripe_subscription_id, credits, next_billing_date, valid_until FROM user_membership`

func scanMembership(row rowScanner) (model.UserMembership, error) {
	var (
		m          model.UserMembership
		planID     sql.NullInt64
		endDate    sql.NullTime
		subID      sql.NullString
		nextBill   sql.NullTime
		validUntil sql.NullTime
	)
	err := row.Scan(&m.ID, &m.UserID, &planID, &m.StartDate, &endDate, &m.Active,
		&subID, &m.Credits, &nextBill, &validUntil)
	if err != nil {
		return model.UserMembership{}, err
	}
	m.PlanID = uint64Ptr(planID)
	m.StartDate = m.StartDate.UTC()
	m.EndDate = timePtr(endDate)
	m.StripeSubscriptionID = stringPtr(subID)
	m.NextBillingDate = timePtr(nextBill)
	m.ValidUntil = timePtr(validUntil)
	return m, nil
}

// GetByUser returns the user's membership or ErrMembershipNotFound.
func (r *MembershipRepo) GetByUser(ctx context.Context, userID uint64) (model.UserMembership, error) {
	m, err := scanMembership(r.DB.QueryRowContext(ctx, membershipSelect+" WHERE user_id = ? LIMIT 1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserMembership{}, ErrMembershipNotFound
	}
	return m, err
}

// List returns memberships ordered by user, optionally filtered on active.
func (r *MembershipRepo) List(ctx context.Context, active *bool) ([]model.UserMembership, error) {
	q := membershipSelect
	var args []any
	if active != nil {
		q += " WHERE active = ?"
		args = append(args, *active)
	}
	q += " ORDER BY user_id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.UserMembership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Upsert creates the user's membership or replaces the existing one.  The
// row id is written back to m.  A subscription id already used by another
// user yields ErrConflict; a missing user or plan yields the matching
// not-found error.
func (r *MembershipRepo) Upsert(ctx context.Context, m *model.UserMembership) error {
	if m.StartDate.IsZero() {
		return model.Invalid("start_date is required")
	}
	args := []any{nullUint64(m.PlanID), model.DateOnly(m.StartDate), nullDate(m.EndDate), m.Active,
		nullString(m.StripeSubscriptionID), m.Credits, nullDate(m.NextBillingDate), nullDate(m.ValidUntil)}

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var id uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM user_membership WHERE user_id = ? FOR UPDATE", m.UserID).Scan(&id)
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, `UPDATE user_membership SET plan_id = ?, start_date = ?, end_date = ?, active = ?,
				stripe_subscription_id = ?, credits = ?, next_billing_date = ?, valid_until = ? WHERE user_id = ?`,
				append(args, m.UserID)...)
			if err != nil {
				return err
			}
			m.ID = id
			return nil
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `INSERT INTO user_membership
				(user_id, plan_id, start_date, end_date, active, stripe_subscription_id, credits, next_billing_date, valid_until)
				VALUES (?,?,?,?,?,?,?,?,?)`, append([]any{m.UserID}, args...)...)
			if err != nil {
				return err
			}
			newID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			m.ID = uint64(newID)
			return nil
		default:
			return err
		}
	})
	if isMissingParent(err) {
		return missingMembershipParent(err)
	}
	return translate(err)
}

// Delete removes the user's membership.
func (r *MembershipRepo) Delete(ctx context.Context, userID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM user_membership WHERE user_id = ?", userID)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrMembershipNotFound)
}

func missingMembershipParent(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && strings.Contains(me.Message, "fk_user_membership_plan") {
		return ErrPlanNotFound
	}
	return ErrUserNotFound
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: model.DateOnly(*t), Valid: true}
}

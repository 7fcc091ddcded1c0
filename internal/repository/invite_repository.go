package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// InviteRepo stores single-use role invitations.
type InviteRepo struct{ DB *sql.DB }

func NewInviteRepo(db *sql.DB) *InviteRepo { return &InviteRepo{DB: db} }

const inviteSelect = `SELECT id, email, token, role, expires_at, is_used FROM invite`

func scanInvite(row rowScanner) (model.Invite, error) {
	var inv model.Invite
	if err := row.Scan(&inv.ID, &inv.Email, &inv.Token, &inv.Role, &inv.ExpiresAt, &inv.IsUsed); err != nil {
		return model.Invite{}, err
	}
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	return inv, nil
}

// Create inserts inv.  A duplicate email or token yields ErrConflict.
func (r *InviteRepo) Create(ctx context.Context, inv *model.Invite) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO invite (email, token, role, expires_at, is_used) VALUES (?,?,?,?,?)",
		inv.Email, inv.Token, inv.Role, inv.ExpiresAt.UTC(), inv.IsUsed)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

func (r *InviteRepo) GetByID(ctx context.Context, id uint64) (model.Invite, error) {
	inv, err := scanInvite(r.DB.QueryRowContext(ctx, inviteSelect+" WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invite{}, ErrInviteNotFound
	}
	return inv, err
}

// List returns invites whose email contains query, newest expiry first.
func (r *InviteRepo) List(ctx context.Context, query string) ([]model.Invite, error) {
	q := inviteSelect
	var args []any
	if s := strings.TrimSpace(query); s != "" {
		q += " WHERE email LIKE ?"
		args = append(args, likePattern(s))
	}
	q += " ORDER BY expires_at DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// MarkUsed flags the invite as redeemed.  It only succeeds for an invite
// that is still unused and unexpired at now.
func (r *InviteRepo) MarkUsed(ctx context.Context, id uint64, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE invite SET is_used = TRUE WHERE id = ? AND is_used = FALSE AND expires_at > ?", id, now.UTC())
	if err != nil {
		return err
	}
	return requireAffected(res, ErrInviteNotFound)
}

func (r *InviteRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM invite WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrInviteNotFound)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/studio-booking/internal/model"
)

// SessionRequestRepo stores unconfirmed session requests.
type SessionRequestRepo struct{ DB *sql.DB }

func NewSessionRequestRepo(db *sql.DB) *SessionRequestRepo { return &SessionRequestRepo{DB: db} }

const sessionRequestSelect = `SELECT id, requester_name, requester_email, requester_phone, requested_date,
	requested_time, hours, notes, status, created_at, updated_at FROM pending_sessions`

func scanSessionRequest(row rowScanner) (model.PendingSessionRequest, error) {
	var (
		r     model.PendingSessionRequest
		notes sql.NullString
	)
	err := row.Scan(&r.ID, &r.RequesterName, &r.RequesterEmail, &r.RequesterPhone, &r.RequestedDate,
		&r.RequestedTime, &r.Hours, &notes, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.PendingSessionRequest{}, err
	}
	r.RequestedDate = r.RequestedDate.UTC()
	r.Notes = stringPtr(notes)
	return r, nil
}

// Create validates and inserts req.  An empty status defaults to pending.
func (r *SessionRequestRepo) Create(ctx context.Context, req *model.PendingSessionRequest) error {
	if req.Status == "" {
		req.Status = model.RequestPending
	}
	if err := req.Validate(); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `INSERT INTO pending_sessions
		(requester_name, requester_email, requester_phone, requested_date, requested_time, hours, notes, status)
		VALUES (?,?,?,?,?,?,?,?)`,
		req.RequesterName, req.RequesterEmail, req.RequesterPhone, model.DateOnly(req.RequestedDate),
		req.RequestedTime, req.Hours, nullString(req.Notes), req.Status)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	return nil
}

func (r *SessionRequestRepo) GetByID(ctx context.Context, id uint64) (model.PendingSessionRequest, error) {
	req, err := scanSessionRequest(r.DB.QueryRowContext(ctx, sessionRequestSelect+" WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PendingSessionRequest{}, ErrSessionRequestNotFound
	}
	return req, err
}

// SessionRequestFilter narrows List.  Query matches requester name or email.
type SessionRequestFilter struct {
	Status *model.SessionRequestStatus
	Query  string
}

// List returns requests by requested date then time.
func (r *SessionRequestRepo) List(ctx context.Context, f SessionRequestFilter) ([]model.PendingSessionRequest, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(requester_name LIKE ? OR requester_email LIKE ?)")
		args = append(args, likePattern(q), likePattern(q))
	}
	q := sessionRequestSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY requested_date, requested_time, id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PendingSessionRequest{}
	for rows.Next() {
		req, err := scanSessionRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateStatus moves a request to next and returns the previous status.
// The row is locked while the transition is checked, so two concurrent
// decisions cannot both succeed.
func (r *SessionRequestRepo) UpdateStatus(ctx context.Context, id uint64, next model.SessionRequestStatus) (model.SessionRequestStatus, error) {
	var prev model.SessionRequestStatus
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, "SELECT status FROM pending_sessions WHERE id = ? FOR UPDATE", id).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionRequestNotFound
		}
		if err != nil {
			return err
		}
		if !prev.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, prev, next)
		}
		_, err = tx.ExecContext(ctx, "UPDATE pending_sessions SET status = ? WHERE id = ?", next, id)
		return err
	})
	return prev, err
}

func (r *SessionRequestRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM pending_sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrSessionRequestNotFound)
}

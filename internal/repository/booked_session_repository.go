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

// BookedSessionRepo stores confirmed bookings.
type BookedSessionRepo struct{ DB *sql.DB }

func NewBookedSessionRepo(db *sql.DB) *BookedSessionRepo { return &BookedSessionRepo{DB: db} }

const bookedSessionSelect = `SELECT b.id, b.booked_by_id, COALESCE(u.username, ''), b.booked_date, b.booked_start_time,
	b.booked_datetime, b.duration_hours, b.status, b.notes, b.created_at, b.updated_at
	FROM booked_sessions b LEFT JOIN users u ON u.id = b.booked_by_id`

func scanBookedSession(row rowScanner) (model.BookedSession, error) {
	var (
		s        model.BookedSession
		bookedBy sql.NullInt64
		start    sql.NullTime
		notes    sql.NullString
	)
	err := row.Scan(&s.ID, &bookedBy, &s.BookedByUsername, &s.BookedDate, &s.BookedStartTime,
		&start, &s.DurationHours, &s.Status, &notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.BookedSession{}, err
	}
	s.BookedByID = uint64Ptr(bookedBy)
	s.BookedDate = s.BookedDate.UTC()
	s.BookedDatetime = timePtr(start)
	s.Notes = stringPtr(notes)
	return s, nil
}

// Create inserts s.  All three start columns are written from the same
// value; callers set it with SetStart.
func (r *BookedSessionRepo) Create(ctx context.Context, s *model.BookedSession) error {
	if s.Status == "" {
		s.Status = model.BookedBooked
	}
	if s.BookedDatetime == nil && !s.BookedDate.IsZero() {
		s.SetStart(s.Start())
	}
	if err := s.Validate(); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `INSERT INTO booked_sessions
		(booked_by_id, booked_date, booked_start_time, booked_datetime, duration_hours, status, notes)
		VALUES (?,?,?,?,?,?,?)`,
		nullUint64(s.BookedByID), s.BookedDate, s.BookedStartTime, nullTime(s.BookedDatetime),
		s.DurationHours, s.Status, nullString(s.Notes))
	if err != nil {
		if isMissingParent(err) {
			return ErrUserNotFound
		}
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *BookedSessionRepo) GetByID(ctx context.Context, id uint64) (model.BookedSession, error) {
	s, err := scanBookedSession(r.DB.QueryRowContext(ctx, bookedSessionSelect+" WHERE b.id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookedSession{}, ErrBookedSessionNotFound
	}
	return s, err
}

// BookedSessionFilter narrows List.  Query matches the booker's username;
// From and To bound the start date inclusively.
type BookedSessionFilter struct {
	Status *model.BookedStatus
	Query  string
	From   *time.Time
	To     *time.Time
}

// List returns sessions in calendar order.
func (r *BookedSessionRepo) List(ctx context.Context, f BookedSessionFilter) ([]model.BookedSession, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		where = append(where, "b.status = ?")
		args = append(args, *f.Status)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "u.username LIKE ?")
		args = append(args, likePattern(q))
	}
	if f.From != nil {
		where = append(where, "b.booked_date >= ?")
		args = append(args, model.DateOnly(*f.From))
	}
	if f.To != nil {
		where = append(where, "b.booked_date <= ?")
		args = append(args, model.DateOnly(*f.To))
	}
	q := bookedSessionSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.booked_date, b.booked_start_time, b.id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookedSession{}
	for rows.Next() {
		s, err := scanBookedSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateStatus moves a session to next under a row lock and returns the
// previous status.
func (r *BookedSessionRepo) UpdateStatus(ctx context.Context, id uint64, next model.BookedStatus) (model.BookedStatus, error) {
	var prev model.BookedStatus
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, "SELECT status FROM booked_sessions WHERE id = ? FOR UPDATE", id).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookedSessionNotFound
		}
		if err != nil {
			return err
		}
		if !prev.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, prev, next)
		}
		_, err = tx.ExecContext(ctx, "UPDATE booked_sessions SET status = ? WHERE id = ?", next, id)
		return err
	})
	return prev, err
}

// Reschedule moves a session to start, keeping the legacy columns in step.
func (r *BookedSessionRepo) Reschedule(ctx context.Context, id uint64, start time.Time) error {
	var s model.BookedSession
	s.SetStart(start)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE booked_sessions SET booked_date = ?, booked_start_time = ?, booked_datetime = ? WHERE id = ?",
		s.BookedDate, s.BookedStartTime, *s.BookedDatetime, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrBookedSessionNotFound)
}

func (r *BookedSessionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM booked_sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrBookedSessionNotFound)
}

// Backfill fills booked_datetime from the legacy date/time pair for rows
// written before the column existed.  It returns the number of rows fixed.
func (r *BookedSessionRepo) Backfill(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE booked_sessions SET booked_datetime = TIMESTAMP(booked_date, booked_start_time) WHERE booked_datetime IS NULL")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidStatus is returned for a status outside the entity's enum.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("invalid input")
)

// Invalid returns an ErrInvalid carrying msg.
func Invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalid, msg) }

// SessionRequestStatus is the state of a PendingSessionRequest.
type SessionRequestStatus string

const (
	RequestPending  SessionRequestStatus = "pending"
	RequestApproved SessionRequestStatus = "approved"
	RequestDeclined SessionRequestStatus = "declined"
)

// BookedStatus is the state of a BookedSession.
type BookedStatus string

const (
	BookedBooked   BookedStatus = "booked"
	BookedPaid     BookedStatus = "paid"
	BookedCanceled BookedStatus = "canceled"
)

var requestTransitions = map[SessionRequestStatus][]SessionRequestStatus{
	RequestPending: {RequestApproved, RequestDeclined},
}

var bookedTransitions = map[BookedStatus][]BookedStatus{
	BookedBooked: {BookedPaid, BookedCanceled},
	BookedPaid:   {BookedCanceled},
}

// ParseSessionRequestStatus validates a request status string.
func ParseSessionRequestStatus(s string) (SessionRequestStatus, error) {
	st := SessionRequestStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case RequestPending, RequestApproved, RequestDeclined:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ParseBookedStatus validates a booked-session status string.
func ParseBookedStatus(s string) (BookedStatus, error) {
	st := BookedStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case BookedBooked, BookedPaid, BookedCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// CanTransition reports whether a request may move from s to next.
func (s SessionRequestStatus) CanTransition(next SessionRequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanTransition reports whether a booked session may move from s to next.
func (s BookedStatus) CanTransition(next BookedStatus) bool {
	for _, allowed := range bookedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ClockTime is a wall-clock time of day, stored in MySQL TIME columns.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClockTime accepts "15:04" or "15:04:05".
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return ClockTime{}, Invalid(fmt.Sprintf("time of day %q", s))
}

// ClockOf returns the time-of-day part of t in t's location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// On combines c with the calendar day of date, in UTC.
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, 0, time.UTC)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan implements sql.Scanner; the MySQL driver returns TIME as text.
func (c *ClockTime) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return c.UnmarshalText(v)
	case string:
		return c.UnmarshalText([]byte(v))
	case time.Time:
		*c = ClockOf(v)
		return nil
	}
	return fmt.Errorf("cannot scan %T into ClockTime", src)
}

// Value implements driver.Valuer.
func (c ClockTime) Value() (driver.Value, error) { return c.String(), nil }

// PendingSessionRequest mirrors `pending_sessions`: a session request that
// has not been confirmed.  Requester details are free text and not linked to
// any user.
type PendingSessionRequest struct {
	ID             uint64               `json:"id"`
	RequesterName  string               `json:"requester_name"`
	RequesterEmail string               `json:"requester_email"`
	RequesterPhone string               `json:"requester_phone"`
	RequestedDate  time.Time            `json:"requested_date"`
	RequestedTime  ClockTime            `json:"requested_time"`
	Hours          uint32               `json:"hours"`
	Notes          *string              `json:"notes,omitempty"`
	Status         SessionRequestStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Validate checks the fields a new request must carry.
func (r PendingSessionRequest) Validate() error {
	if strings.TrimSpace(r.RequesterName) == "" {
		return Invalid("requester_name is required")
	}
	if !strings.Contains(r.RequesterEmail, "@") {
		return Invalid("requester_email is invalid")
	}
	if r.Hours == 0 {
		return Invalid("hours must be positive")
	}
	if r.RequestedDate.IsZero() {
		return Invalid("requested_date is required")
	}
	if _, err := ParseSessionRequestStatus(string(r.Status)); err != nil {
		return err
	}
	return nil
}

// BookedSession mirrors `booked_sessions`: a confirmed booking on the studio
// calendar.  BookedDatetime is authoritative; BookedDate and BookedStartTime
// are the legacy pair kept in lockstep by SetStart.  Rows written before
// BookedDatetime existed have it nil and are read through Start.
type BookedSession struct {
	ID               uint64       `json:"id"`
	BookedByID       *uint64      `json:"booked_by_id"`
	BookedByUsername string       `json:"booked_by_username,omitempty"`
	BookedDate       time.Time    `json:"booked_date"`
	BookedStartTime  ClockTime    `json:"booked_start_time"`
	BookedDatetime   *time.Time   `json:"booked_datetime"`
	DurationHours    uint32       `json:"duration_hours"`
	Status           BookedStatus `json:"status"`
	Notes            *string      `json:"notes,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// SetStart writes the start time to all three columns.
func (s *BookedSession) SetStart(t time.Time) {
	t = t.UTC().Truncate(time.Second)
	s.BookedDatetime = &t
	s.BookedDate = DateOnly(t)
	s.BookedStartTime = ClockOf(t)
}

// Start returns the session start, preferring BookedDatetime and falling back
// to the legacy date/time pair.
func (s BookedSession) Start() time.Time {
	if s.BookedDatetime != nil {
		return s.BookedDatetime.UTC()
	}
	return s.BookedStartTime.On(s.BookedDate)
}

// End is Start plus the booked duration.
func (s BookedSession) End() time.Time {
	return s.Start().Add(time.Duration(s.DurationHours) * time.Hour)
}

// NeedsBackfill reports whether the row predates BookedDatetime.
func (s BookedSession) NeedsBackfill() bool { return s.BookedDatetime == nil }

// Validate checks the invariants of a booked session.
func (s BookedSession) Validate() error {
	if s.DurationHours == 0 {
		return Invalid("duration_hours must be positive")
	}
	if s.BookedDate.IsZero() && s.BookedDatetime == nil {
		return Invalid("start is required")
	}
	if _, err := ParseBookedStatus(string(s.Status)); err != nil {
		return err
	}
	return nil
}

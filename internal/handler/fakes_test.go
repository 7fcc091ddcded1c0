package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
	"github.com/iliyamo/studio-booking/internal/utils"
	"github.com/iliyamo/studio-booking/internal/view"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.User
	logins map[uint64]time.Time
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{rows: map[uint64]model.User{}, logins: map[uint64]time.Time{}}
	for _, u := range users {
		if u.ID > m.nextID {
			m.nextID = u.ID
		}
		m.rows[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Username == u.Username {
			return repository.ErrConflict
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.Profile.UserID = u.ID
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) List(_ context.Context, f repository.UserFilter) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.rows {
		if f.Query != "" && !strings.Contains(u.Username, f.Query) {
			continue
		}
		if f.Role != nil && u.Profile.Role != *f.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) UpdateContact(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[u.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	row.FirstName, row.LastName, row.Email = u.FirstName, u.LastName, u.Email
	row.Profile.Phone = u.Profile.Phone
	m.rows[u.ID] = row
	return nil
}

func (m *memUsers) SetRole(_ context.Context, id uint64, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	row.Profile.Role = role
	m.rows[id] = row
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uint64, phone, stripeCustomerID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if stripeCustomerID != nil {
		for _, other := range m.rows {
			if other.ID != id && other.Profile.StripeCustomerID != nil && *other.Profile.StripeCustomerID == *stripeCustomerID {
				return repository.ErrConflict
			}
		}
	}
	row.Profile.Phone, row.Profile.StripeCustomerID = phone, stripeCustomerID
	m.rows[id] = row
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[id] = at
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.rows, id)
	return nil
}

// memMemberships is an in-memory MembershipStore keyed by user id.
type memMemberships map[uint64]model.UserMembership

func (m memMemberships) GetByUser(_ context.Context, userID uint64) (model.UserMembership, error) {
	ms, ok := m[userID]
	if !ok {
		return model.UserMembership{}, repository.ErrMembershipNotFound
	}
	return ms, nil
}

func (m memMemberships) List(_ context.Context, active *bool) ([]model.UserMembership, error) {
	var out []model.UserMembership
	for _, ms := range m {
		if active == nil || ms.Active == *active {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m memMemberships) Upsert(_ context.Context, ms *model.UserMembership) error {
	ms.ID = ms.UserID
	m[ms.UserID] = *ms
	return nil
}

func (m memMemberships) Delete(_ context.Context, userID uint64) error {
	if _, ok := m[userID]; !ok {
		return repository.ErrMembershipNotFound
	}
	delete(m, userID)
	return nil
}

// memSessions issues opaque tokens and records revocations.
type memSessions struct {
	created    []uint64
	revoked    []string
	revokedAll []uint64
}

func (s *memSessions) Create(_ context.Context, userID uint64) (utils.SessionToken, error) {
	s.created = append(s.created, userID)
	return utils.SessionToken{Token: "tok", Exp: testNow.Add(time.Hour)}, nil
}

func (s *memSessions) Revoke(_ context.Context, sess session.Session) error {
	s.revoked = append(s.revoked, sess.ID)
	return nil
}

func (s *memSessions) RevokeAll(_ context.Context, userID uint64) error {
	s.revokedAll = append(s.revokedAll, userID)
	return nil
}

type memInvites struct {
	rows map[uint64]model.Invite
}

func (m *memInvites) Create(_ context.Context, inv *model.Invite) error {
	for _, row := range m.rows {
		if row.Email == inv.Email {
			return repository.ErrConflict
		}
	}
	inv.ID = uint64(len(m.rows) + 1)
	m.rows[inv.ID] = *inv
	return nil
}

func (m *memInvites) GetByID(_ context.Context, id uint64) (model.Invite, error) {
	inv, ok := m.rows[id]
	if !ok {
		return model.Invite{}, repository.ErrInviteNotFound
	}
	return inv, nil
}

func (m *memInvites) List(context.Context, string) ([]model.Invite, error) {
	var out []model.Invite
	for _, inv := range m.rows {
		out = append(out, inv)
	}
	return out, nil
}

func (m *memInvites) MarkUsed(_ context.Context, id uint64, now time.Time) error {
	inv, ok := m.rows[id]
	if !ok || !inv.IsValid(now) {
		return repository.ErrInviteNotFound
	}
	inv.IsUsed = true
	m.rows[id] = inv
	return nil
}

func (m *memInvites) Delete(_ context.Context, id uint64) error {
	delete(m.rows, id)
	return nil
}

type memPlans struct {
	rows map[uint64]model.MembershipPlan
}

func (m *memPlans) Create(_ context.Context, p *model.MembershipPlan) error {
	if strings.TrimSpace(p.Name) == "" {
		return model.Invalid("name is required")
	}
	if p.StripeProductID == "" {
		p.StripeProductID = model.DefaultStripeProductID
	}
	p.ID = uint64(len(m.rows) + 1)
	m.rows[p.ID] = *p
	return nil
}

func (m *memPlans) GetByID(_ context.Context, id uint64) (model.MembershipPlan, error) {
	p, ok := m.rows[id]
	if !ok {
		return model.MembershipPlan{}, repository.ErrPlanNotFound
	}
	return p, nil
}

func (m *memPlans) List(context.Context, string) ([]model.MembershipPlan, error) {
	var out []model.MembershipPlan
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPlans) Update(_ context.Context, p model.MembershipPlan) error {
	if _, ok := m.rows[p.ID]; !ok {
		return repository.ErrPlanNotFound
	}
	m.rows[p.ID] = p
	return nil
}

func (m *memPlans) Delete(_ context.Context, id uint64) error {
	if _, ok := m.rows[id]; !ok {
		return repository.ErrPlanNotFound
	}
	delete(m.rows, id)
	return nil
}

type memRequests struct {
	rows map[uint64]model.PendingSessionRequest
}

func (m *memRequests) Create(_ context.Context, r *model.PendingSessionRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.ID = uint64(len(m.rows) + 1)
	m.rows[r.ID] = *r
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id uint64) (model.PendingSessionRequest, error) {
	r, ok := m.rows[id]
	if !ok {
		return model.PendingSessionRequest{}, repository.ErrSessionRequestNotFound
	}
	return r, nil
}

func (m *memRequests) List(_ context.Context, f repository.SessionRequestFilter) ([]model.PendingSessionRequest, error) {
	var out []model.PendingSessionRequest
	for _, r := range m.rows {
		if f.Status == nil || r.Status == *f.Status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRequests) UpdateStatus(_ context.Context, id uint64, next model.SessionRequestStatus) (model.SessionRequestStatus, error) {
	r, ok := m.rows[id]
	if !ok {
		return "", repository.ErrSessionRequestNotFound
	}
	prev := r.Status
	if !prev.CanTransition(next) {
		return prev, model.ErrInvalidTransition
	}
	r.Status = next
	m.rows[id] = r
	return prev, nil
}

func (m *memRequests) Delete(_ context.Context, id uint64) error {
	delete(m.rows, id)
	return nil
}

type memBooked struct {
	rows map[uint64]model.BookedSession
}

func (m *memBooked) Create(_ context.Context, s *model.BookedSession) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.ID = uint64(len(m.rows) + 1)
	m.rows[s.ID] = *s
	return nil
}

func (m *memBooked) GetByID(_ context.Context, id uint64) (model.BookedSession, error) {
	s, ok := m.rows[id]
	if !ok {
		return model.BookedSession{}, repository.ErrBookedSessionNotFound
	}
	return s, nil
}

func (m *memBooked) List(_ context.Context, f repository.BookedSessionFilter) ([]model.BookedSession, error) {
	var out []model.BookedSession
	for _, s := range m.rows {
		if f.From != nil && s.Start().Before(*f.From) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memBooked) UpdateStatus(_ context.Context, id uint64, next model.BookedStatus) (model.BookedStatus, error) {
	s, ok := m.rows[id]
	if !ok {
		return "", repository.ErrBookedSessionNotFound
	}
	prev := s.Status
	if !prev.CanTransition(next) {
		return prev, model.ErrInvalidTransition
	}
	s.Status = next
	m.rows[id] = s
	return prev, nil
}

func (m *memBooked) Reschedule(_ context.Context, id uint64, start time.Time) error {
	s, ok := m.rows[id]
	if !ok {
		return repository.ErrBookedSessionNotFound
	}
	s.SetStart(start)
	m.rows[id] = s
	return nil
}

func (m *memBooked) Delete(_ context.Context, id uint64) error {
	delete(m.rows, id)
	return nil
}

// testUser builds an active user with the given role and password.
func testUser(t *testing.T, id uint64, username string, role model.Role, password string) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	u := model.NewUser(username, hash, username+"@example.com", "", "")
	u.ID = id
	u.Profile.UserID = id
	u.Profile.Role = role
	return u
}

// newEcho returns an Echo with the page renderer installed.
func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	r, err := view.New()
	require.NoError(t, err)
	e := echo.New()
	e.Renderer = r
	return e
}

// asUser installs u as the authenticated caller, the way LoadSession does.
func asUser(u *model.User) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u != nil {
				c.Set("user", u)
				c.Set("session", session.Session{ID: "sid-" + u.Username, UserID: u.ID})
			}
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postForm(e *echo.Echo, target, body string) *httptest.ResponseRecorder {
	return do(e, http.MethodPost, target, echo.MIMEApplicationForm, body)
}

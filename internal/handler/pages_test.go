package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
)

func pageServer(t *testing.T, users *memUsers, ms memMemberships, caller *model.User) *echo.Echo {
	t.Helper()
	h := NewPageHandler(users, ms, "/admin/", zap.NewNop())
	h.Now = func() time.Time { return testNow }
	e := newEcho(t)
	e.GET("/", h.Home, asUser(caller))
	e.GET("/member-profile/", h.Profile, asUser(caller))
	e.POST("/member-profile/", h.UpdateProfile, asUser(caller))
	return e
}

func TestHomeSections(t *testing.T) {
	admin := testUser(t, 1, "root", model.RoleAdmin, "password1")
	member := testUser(t, 2, "mia", model.RoleMember, "password1")

	rec := do(pageServer(t, newMemUsers(), memMemberships{}, nil), http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2025-03-14 09:30 UTC")
	assert.NotContains(t, rec.Body.String(), `class="member"`)

	rec = do(pageServer(t, newMemUsers(), memMemberships{}, &member), http.MethodGet, "/", "", "")
	assert.Contains(t, rec.Body.String(), `class="member"`)
	assert.NotContains(t, rec.Body.String(), `class="operator"`)
	assert.NotContains(t, rec.Body.String(), `class="admin"`)

	rec = do(pageServer(t, newMemUsers(), memMemberships{}, &admin), http.MethodGet, "/", "", "")
	body := rec.Body.String()
	assert.Contains(t, body, `class="admin"`)
	assert.Contains(t, body, `class="operator"`)
	assert.Contains(t, body, `class="member"`)
	assert.Contains(t, body, `href="/admin/"`)
}

func TestHomeFailsOnUnrankableRole(t *testing.T) {
	broken := testUser(t, 1, "x", model.Role(9), "password1")
	e := pageServer(t, newMemUsers(), memMemberships{}, &broken)

	rec := do(e, http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProfileMembershipStatus(t *testing.T) {
	mia := testUser(t, 2, "mia", model.RoleMember, "password1")
	ms := memMemberships{}
	e := pageServer(t, newMemUsers(mia), ms, &mia)

	rec := do(e, http.MethodGet, "/member-profile/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>Unpaid</strong>")

	ms[2] = model.UserMembership{UserID: 2, Active: false, StartDate: testNow}
	rec = do(e, http.MethodGet, "/member-profile/", "", "")
	assert.Contains(t, rec.Body.String(), "<strong>Unpaid</strong>")

	ms[2] = model.UserMembership{UserID: 2, Active: true, StartDate: testNow}
	rec = do(e, http.MethodGet, "/member-profile/", "", "")
	assert.Contains(t, rec.Body.String(), "<strong>Paid</strong>")
}

func TestProfileAnonymousIsForbidden(t *testing.T) {
	e := pageServer(t, newMemUsers(), memMemberships{}, nil)

	rec := do(e, http.MethodGet, "/member-profile/", "", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	mia := testUser(t, 2, "mia", model.RoleMember, "password1")
	mia.FirstName = "Mia"
	users := newMemUsers(mia)
	e := pageServer(t, users, memMemberships{}, &mia)

	rec := postForm(e, "/member-profile/", "phone=555-0100&last_name=Wong")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/member-profile/?updated=1", rec.Header().Get("Location"))
	saved := users.rows[2]
	assert.Equal(t, "555-0100", saved.Profile.PhoneValue())
	assert.Equal(t, "Wong", saved.LastName)
	assert.Equal(t, "Mia", saved.FirstName, "absent fields keep their value")
	assert.Equal(t, "mia@example.com", saved.Email)
}

func TestUpdateProfileShowsConfirmation(t *testing.T) {
	mia := testUser(t, 2, "mia", model.RoleMember, "password1")
	e := pageServer(t, newMemUsers(mia), memMemberships{}, &mia)

	rec := do(e, http.MethodGet, "/member-profile/?updated=1", "", "")

	assert.Contains(t, rec.Body.String(), "Your profile has been updated.")
}

func TestUpdateProfileRejectsInvalidInput(t *testing.T) {
	mia := testUser(t, 2, "mia", model.RoleMember, "password1")

	cases := map[string]string{
		"phone=1234567890123456":  "Phone number is too long.",
		"email=not-an-address":    "Enter a valid email address.",
		"email=Mia+%3Cm%40x.io%3E": "Enter a valid email address.",
	}
	for body, msg := range cases {
		t.Run(body, func(t *testing.T) {
			users := newMemUsers(mia)
			e := pageServer(t, users, memMemberships{}, &mia)

			rec := postForm(e, "/member-profile/", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), msg)
			assert.Nil(t, users.rows[2].Profile.Phone)
			assert.Equal(t, "mia@example.com", users.rows[2].Email)
		})
	}
}

func TestUpdateProfileEmptyPhoneClears(t *testing.T) {
	mia := testUser(t, 2, "mia", model.RoleMember, "password1")
	phone := "555-0100"
	mia.Profile.Phone = &phone
	users := newMemUsers(mia)
	e := pageServer(t, users, memMemberships{}, &mia)

	rec := postForm(e, "/member-profile/", "phone=")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "", users.rows[2].Profile.PhoneValue())
}

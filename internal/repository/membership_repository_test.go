package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

var membershipCols = []string{
	"id", "user_id", "plan_id", "start_date", "end_date", "active",
	"stripe_subscription_id", "credits", "next_billing_date", "valid_until",
}

func TestMembershipGetByUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepo(db)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM user_membership WHERE user_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(
			2, 7, 1, start, nil, true, "sub_1", 4, nil, nil))

	m, err := repo.GetByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPaid, model.MembershipStatus(&m))
	require.NotNil(t, m.PlanID)
	assert.Equal(t, uint64(1), *m.PlanID)
	assert.Equal(t, uint32(4), m.Credits)
}

func TestMembershipGetByUserMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepo(db)

	mock.ExpectQuery("FROM user_membership").WillReturnRows(sqlmock.NewRows(membershipCols))

	_, err := repo.GetByUser(context.Background(), 7)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestMembershipUpsertInsertsWhenMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepo(db)

	start := time.Date(2024, 1, 1, 15, 4, 5, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM user_membership WHERE user_id = \\? FOR UPDATE").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO user_membership").
		WithArgs(int64(7), nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil, true, nil, int64(0), nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	m := model.UserMembership{UserID: 7, StartDate: start, Active: true}
	require.NoError(t, repo.Upsert(context.Background(), &m))
	assert.Equal(t, uint64(2), m.ID)
}

func TestMembershipUpsertUpdatesOwnRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepo(db)

	sub := "sub_1"
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM user_membership WHERE user_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec("UPDATE user_membership SET .* WHERE user_id = \\?").
		WithArgs(nil, model.DateOnly(fixedNow), nil, true, "sub_1", int64(3), nil, nil, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m := model.UserMembership{UserID: 7, StartDate: fixedNow, Active: true, StripeSubscriptionID: &sub, Credits: 3}
	require.NoError(t, repo.Upsert(context.Background(), &m))
	assert.Equal(t, uint64(5), m.ID)
}

func TestMembershipUpsertErrors(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepo(db)
	m := model.UserMembership{UserID: 7, StartDate: fixedNow}

	expectInsertError := func(err error) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM user_membership").WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT INTO user_membership").WillReturnError(err)
		mock.ExpectRollback()
	}

	expectInsertError(&mysql.MySQLError{Number: 1452, Message: "CONSTRAINT `fk_user_membership_plan` FOREIGN KEY"})
	assert.ErrorIs(t, repo.Upsert(context.Background(), &m), ErrPlanNotFound)

	expectInsertError(&mysql.MySQLError{Number: 1452, Message: "CONSTRAINT `fk_user_membership_user` FOREIGN KEY"})
	assert.ErrorIs(t, repo.Upsert(context.Background(), &m), ErrUserNotFound)

	// Another user's subscription id: the insert hits the unique key.
	expectInsertError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'sub_1' for key 'uq_user_membership_subscription'"})
	assert.ErrorIs(t, repo.Upsert(context.Background(), &m), ErrConflict)

	assert.Error(t, repo.Upsert(context.Background(), &model.UserMembership{UserID: 7}))
}

func TestMembershipUpsertSubscriptionClashOnUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepo(db)

	sub := "sub_other"
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM user_membership").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec("UPDATE user_membership").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'sub_other'"})
	mock.ExpectRollback()

	m := model.UserMembership{UserID: 7, StartDate: fixedNow, StripeSubscriptionID: &sub}
	assert.ErrorIs(t, repo.Upsert(context.Background(), &m), ErrConflict)
	assert.Zero(t, m.ID)
}

func TestDuplicateDetectionNeedsMySQLError(t *testing.T) {
	assert.False(t, isDuplicate(errors.New("dial tcp 10.0.0.1:1062: connection refused")))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.Equal(t, ErrConflict, translate(&mysql.MySQLError{Number: 1062}))
}

func TestMembershipListActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepo(db)

	active := false
	mock.ExpectQuery("WHERE active = \\? ORDER BY user_id").WithArgs(false).
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(3, 8, nil, fixedNow, nil, false, nil, 0, nil, nil))

	out, err := repo.List(context.Background(), &active)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].PlanID)
	assert.Equal(t, model.MembershipUnpaid, model.MembershipStatus(&out[0]))
}

func TestInviteCreateAndMarkUsed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInviteRepo(db)

	token := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	inv, err := model.NewInvite("Guest@Example.com", model.RoleMember, token, fixedNow)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO invite").
		WithArgs("guest@example.com", token, "member", fixedNow.Add(model.InviteTTL), false).
		WillReturnResult(sqlmock.NewResult(9, 1))
	require.NoError(t, repo.Create(context.Background(), &inv))
	assert.Equal(t, uint64(9), inv.ID)

	mock.ExpectExec("UPDATE invite SET is_used = TRUE").WithArgs(9, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), 9, fixedNow), ErrInviteNotFound)
}

func TestPlanCreateDefaultsProduct(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPlanRepo(db)

	mock.ExpectExec("INSERT INTO membership_plan").WithArgs("Monthly", model.DefaultStripeProductID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	p := model.MembershipPlan{Name: " Monthly "}
	require.NoError(t, repo.Create(context.Background(), &p))
	assert.Equal(t, uint64(1), p.ID)
	assert.Equal(t, model.DefaultStripeProductID, p.StripeProductID)

	assert.Error(t, repo.Create(context.Background(), &model.MembershipPlan{Name: "  "}))
}

func TestPlanUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPlanRepo(db)

	mock.ExpectQuery("FROM membership_plan WHERE id").WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "stripe_product_id"}))

	err := repo.Update(context.Background(), model.MembershipPlan{ID: 3, Name: "Yearly"})
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

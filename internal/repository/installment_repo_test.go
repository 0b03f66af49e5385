package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/testutil"
)

func TestInstallmentRepository_GetOpenByUserAndPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewInstallmentRepository(db)

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)

	testutil.TestInstallment(t, db, user.ID, plan.ID, testutil.WithInstStatus(model.InstStatusCompleted))
	_, err := repo.GetOpenByUserAndPlan(user.ID, plan.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	open := testutil.TestInstallment(t, db, user.ID, plan.ID)
	got, err := repo.GetOpenByUserAndPlan(user.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, open.ID, got.ID)
}

func TestInstallmentRepository_GetByPaymentID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewInstallmentRepository(db)

	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db)
	inst := testutil.TestInstallment(t, db, user.ID, plan.ID,
		testutil.WithFirstPaid("pay_first", time.Now(), time.Now().AddDate(0, 0, 30)))

	got, err := repo.GetByFirstPaymentID("pay_first")
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.ID)

	_, err = repo.GetByFirstPaymentID("pay_unknown")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.GetBySecondPaymentID("pay_first")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInstallmentRepository_ListPendingSecond(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewInstallmentRepository(db)

	user := testutil.TestUser(t, db)
	planA := testutil.TestPlan(t, db)
	planB := testutil.TestPlan(t, db)
	planC := testutil.TestPlan(t, db)

	pending := testutil.TestInstallment(t, db, user.ID, planA.ID,
		testutil.WithFirstPaid("pay_a", time.Now(), time.Now().AddDate(0, 0, 30)))
	testutil.TestInstallment(t, db, user.ID, planB.ID)
	testutil.TestInstallment(t, db, user.ID, planC.ID, testutil.WithInstStatus(model.InstStatusCompleted))

	got, err := repo.ListPendingSecond(user.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
	require.NotNil(t, got[0].Plan)
}

func TestInstallmentRepository_ListSecondDueWithin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewInstallmentRepository(db)

	user := testutil.TestUser(t, db)
	planA := testutil.TestPlan(t, db)
	planB := testutil.TestPlan(t, db)
	planC := testutil.TestPlan(t, db)

	now := time.Now()
	dueSoon := testutil.TestInstallment(t, db, user.ID, planA.ID,
		testutil.WithFirstPaid("pay_a", now.AddDate(0, 0, -28), now.AddDate(0, 0, 2)))
	// 已逾期的不重复提醒
	testutil.TestInstallment(t, db, user.ID, planB.ID,
		testutil.WithFirstPaid("pay_b", now.AddDate(0, 0, -40), now.AddDate(0, 0, -10)))
	// 窗口之外
	testutil.TestInstallment(t, db, user.ID, planC.ID,
		testutil.WithFirstPaid("pay_c", now, now.AddDate(0, 0, 30)))

	got, err := repo.ListSecondDueWithin(now, now.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dueSoon.ID, got[0].ID)
}

func TestInstallmentRepository_UniquePaymentID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewInstallmentRepository(db)

	user := testutil.TestUser(t, db)
	planA := testutil.TestPlan(t, db)
	planB := testutil.TestPlan(t, db)

	testutil.TestInstallment(t, db, user.ID, planA.ID,
		testutil.WithFirstPaid("pay_dup", time.Now(), time.Now().AddDate(0, 0, 30)))

	// 同一网关支付ID不允许出现在第二条记录上
	dup := &model.InstallmentPlan{
		UserID:                  user.ID,
		PlanID:                  planB.ID,
		Status:                  model.InstStatusSecondPending,
		TotalAmount:             1000,
		FirstInstallmentAmount:  400,
		SecondInstallmentAmount: 600,
		FirstPaymentStatus:      model.PaymentStatusPaid,
		SecondPaymentStatus:     model.PaymentStatusPending,
	}
	paymentID := "pay_dup"
	dup.FirstPaymentID = &paymentID

	err := repo.Create(dup)
	assert.Error(t, err)
}

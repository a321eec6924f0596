package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qpay/quote_pay_server/internal/model"
	"github.com/qpay/quote_pay_server/internal/testutil"
)

func TestPlanPaymentRepository_UniquePerQuoteAndNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanPaymentRepository(db)
	quote := testutil.TestQuote(t, db)

	testutil.TestPlanPayment(t, db, quote.ID, 1, 3, 100.00)

	// 同一报价单同一期数不能重复
	dup := &model.PaymentPlanPayment{
		QuoteID:       quote.ID,
		PaymentNumber: 1,
		TotalPayments: 3,
		Amount:        100.00,
		Status:        model.InstallmentStatusPending,
	}
	assert.Error(t, repo.Create(dup))

	// 其他报价单可以用相同期数
	other := testutil.TestQuote(t, db)
	assert.NoError(t, repo.Create(&model.PaymentPlanPayment{
		QuoteID:       other.ID,
		PaymentNumber: 1,
		TotalPayments: 3,
		Amount:        100.00,
		Status:        model.InstallmentStatusPending,
	}))
}

func TestPlanPaymentRepository_NextPending_OrderedByPaymentNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanPaymentRepository(db)
	quote := testutil.TestQuote(t, db)

	// 乱序创建，NextPending 仍按期数取最小
	testutil.TestPlanPayment(t, db, quote.ID, 3, 3, 100.00)
	testutil.TestPlanPayment(t, db, quote.ID, 1, 3, 100.00,
		testutil.WithInstallmentStatus(model.InstallmentStatusPaid))
	testutil.TestPlanPayment(t, db, quote.ID, 2, 3, 100.00)

	next, err := repo.NextPending(quote.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next.PaymentNumber)
}

func TestPlanPaymentRepository_NextPending_NoneLeft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanPaymentRepository(db)
	quote := testutil.TestQuote(t, db)

	testutil.TestPlanPayment(t, db, quote.ID, 1, 1, 100.00,
		testutil.WithInstallmentStatus(model.InstallmentStatusPaid))

	_, err := repo.NextPending(quote.ID)
	assert.Error(t, err)
}

func TestPlanPaymentRepository_GetBySubscriptionPaymentID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanPaymentRepository(db)
	quote := testutil.TestQuote(t, db)

	payment := testutil.TestPlanPayment(t, db, quote.ID, 2, 3, 100.00,
		testutil.WithSubscriptionPaymentID("sp-9"))

	got, err := repo.GetBySubscriptionPaymentID(quote.ID, "sp-9")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)

	// 关联号的匹配限定在本报价单内
	other := testutil.TestQuote(t, db)
	_, err = repo.GetBySubscriptionPaymentID(other.ID, "sp-9")
	assert.Error(t, err)
}

func TestPlanPaymentRepository_CreateBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewPlanPaymentRepository(db)
	quote := testutil.TestQuote(t, db)

	rows := []*model.PaymentPlanPayment{
		{QuoteID: quote.ID, PaymentNumber: 2, TotalPayments: 3, Amount: 100.00, Status: model.InstallmentStatusPending},
		{QuoteID: quote.ID, PaymentNumber: 3, TotalPayments: 3, Amount: 100.00, Status: model.InstallmentStatusPending},
	}
	require.NoError(t, repo.CreateBatch(rows))

	payments, err := repo.ListByQuote(quote.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	count, err := repo.CountPending(quote.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

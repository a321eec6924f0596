package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/internal/model"
	"github.com/qpay/quote_pay_server/internal/repository"
	"github.com/qpay/quote_pay_server/internal/testutil"
)

func setupSubscription(t *testing.T, gw *fakeSubscriptionGateway) (*SubscriptionService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	quoteRepo := repository.NewQuoteRepository(db)
	paymentRepo := repository.NewPlanPaymentRepository(db)
	svc := NewSubscriptionService(db, quoteRepo, paymentRepo, gw, testConfig())

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return svc, db, cleanup
}

func TestSubscriptionService_CancelAtGateway_Success(t *testing.T) {
	gw := &fakeSubscriptionGateway{}
	svc, db, cleanup := setupSubscription(t, gw)
	defer cleanup()

	quote := testutil.TestQuote(t, db,
		testutil.WithPlan(300.00, 100.00, 3, model.PlanStatusActive),
		testutil.WithSubscriptionID("sub-cancel"),
	)

	got, err := svc.CancelAtGateway(context.Background(), quote.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"sub-cancel"}, gw.cancelled)
	assert.Equal(t, model.PlanStatusCancelled, *got.PlanStatus)

	var persisted model.Quote
	require.NoError(t, db.First(&persisted, quote.ID).Error)
	assert.Equal(t, model.PlanStatusCancelled, *persisted.PlanStatus)
}

func TestSubscriptionService_CancelAtGateway_GatewayErrorLeavesPlanUntouched(t *testing.T) {
	gw := &fakeSubscriptionGateway{cancelErr: errors.New("gateway refused")}
	svc, db, cleanup := setupSubscription(t, gw)
	defer cleanup()

	quote := testutil.TestQuote(t, db,
		testutil.WithPlan(300.00, 100.00, 3, model.PlanStatusActive),
		testutil.WithSubscriptionID("sub-x"),
	)

	_, err := svc.CancelAtGateway(context.Background(), quote.ID)
	assert.Error(t, err)

	var persisted model.Quote
	require.NoError(t, db.First(&persisted, quote.ID).Error)
	assert.Equal(t, model.PlanStatusActive, *persisted.PlanStatus)
}

func TestSubscriptionService_CancelAtGateway_NotFound(t *testing.T) {
	svc, _, cleanup := setupSubscription(t, &fakeSubscriptionGateway{})
	defer cleanup()

	_, err := svc.CancelAtGateway(context.Background(), 99999)
	assert.ErrorIs(t, err, ErrQuoteNotFound)
}

func TestSubscriptionService_CancelAtGateway_NotAPlan(t *testing.T) {
	svc, db, cleanup := setupSubscription(t, &fakeSubscriptionGateway{})
	defer cleanup()

	quote := testutil.TestQuote(t, db)

	_, err := svc.CancelAtGateway(context.Background(), quote.ID)
	assert.ErrorIs(t, err, ErrNotAPaymentPlan)
}

func TestSubscriptionService_CancelAtGateway_AlreadyClosed(t *testing.T) {
	svc, db, cleanup := setupSubscription(t, &fakeSubscriptionGateway{})
	defer cleanup()

	quote := testutil.TestQuote(t, db,
		testutil.WithPlan(300.00, 100.00, 3, model.PlanStatusCompleted),
		testutil.WithSubscriptionID("sub-done"),
	)

	_, err := svc.CancelAtGateway(context.Background(), quote.ID)
	assert.ErrorIs(t, err, ErrPlanAlreadyClosed)
}

func TestSubscriptionService_CancelAtGateway_NoSubscription(t *testing.T) {
	svc, db, cleanup := setupSubscription(t, &fakeSubscriptionGateway{})
	defer cleanup()

	// 订阅建立失败的计划只有告警没有订阅号
	quote := testutil.TestQuote(t, db,
		testutil.WithPlan(300.00, 100.00, 3, model.PlanStatusPending),
	)

	_, err := svc.CancelAtGateway(context.Background(), quote.ID)
	assert.ErrorIs(t, err, ErrNoSubscriptionYet)
}

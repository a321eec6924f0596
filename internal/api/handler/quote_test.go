package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/internal/model"
	"github.com/qpay/quote_pay_server/internal/pkg/gateway"
	"github.com/qpay/quote_pay_server/internal/pkg/response"
	"github.com/qpay/quote_pay_server/internal/repository"
	"github.com/qpay/quote_pay_server/internal/service"
	"github.com/qpay/quote_pay_server/internal/testutil"
)

func setupQuoteHandler(t *testing.T) (*QuoteHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	quoteRepo := repository.NewQuoteRepository(db)
	paymentRepo := repository.NewPlanPaymentRepository(db)
	cfg := handlerTestConfig()

	sub := &stubSubscriptionGateway{result: &gateway.SubscriptionResult{Accepted: true}}
	subscriptionSvc := service.NewSubscriptionService(db, quoteRepo, paymentRepo, sub, cfg)
	quoteSvc := service.NewQuoteService(quoteRepo, paymentRepo)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return NewQuoteHandler(quoteSvc, subscriptionSvc), db, cleanup
}

func TestQuoteHandler_List(t *testing.T) {
	handler, db, cleanup := setupQuoteHandler(t)
	defer cleanup()

	testutil.TestQuote(t, db)
	testutil.TestQuote(t, db, testutil.WithPaymentStatus(model.PaymentStatusPaid))

	router := gin.New()
	router.GET("/quotes", handler.List)

	w := performRequest(router, "GET", "/quotes?payment_status=paid", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["total"])
}

func TestQuoteHandler_Get_PlanWithPayments(t *testing.T) {
	handler, db, cleanup := setupQuoteHandler(t)
	defer cleanup()

	quote := testutil.TestQuote(t, db,
		testutil.WithPlan(300.00, 100.00, 3, model.PlanStatusActive),
	)
	testutil.TestPlanPayment(t, db, quote.ID, 1, 3, 100.00)

	router := gin.New()
	router.GET("/quotes/:id", handler.Get)

	w := performRequest(router, "GET", fmt.Sprintf("/quotes/%d", quote.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotNil(t, data["quote"])
	payments, ok := data["payments"].([]interface{})
	require.True(t, ok)
	assert.Len(t, payments, 1)
}

func TestQuoteHandler_Get_NotFound(t *testing.T) {
	handler, _, cleanup := setupQuoteHandler(t)
	defer cleanup()

	router := gin.New()
	router.GET("/quotes/:id", handler.Get)

	w := performRequest(router, "GET", "/quotes/99999", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestQuoteHandler_Get_BadID(t *testing.T) {
	handler, _, cleanup := setupQuoteHandler(t)
	defer cleanup()

	router := gin.New()
	router.GET("/quotes/:id", handler.Get)

	w := performRequest(router, "GET", "/quotes/abc", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestQuoteHandler_CancelPlan_Success(t *testing.T) {
	handler, db, cleanup := setupQuoteHandler(t)
	defer cleanup()

	quote := testutil.TestQuote(t, db,
		testutil.WithPlan(300.00, 100.00, 3, model.PlanStatusActive),
		testutil.WithSubscriptionID("sub-1"),
	)

	router := gin.New()
	router.POST("/quotes/:id/plan/cancel", handler.CancelPlan)

	w := performRequest(router, "POST", fmt.Sprintf("/quotes/%d/plan/cancel", quote.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)

	var got model.Quote
	require.NoError(t, db.First(&got, quote.ID).Error)
	assert.Equal(t, model.PlanStatusCancelled, *got.PlanStatus)
}

func TestQuoteHandler_CancelPlan_NotAPlan(t *testing.T) {
	handler, db, cleanup := setupQuoteHandler(t)
	defer cleanup()

	quote := testutil.TestQuote(t, db)

	router := gin.New()
	router.POST("/quotes/:id/plan/cancel", handler.CancelPlan)

	w := performRequest(router, "POST", fmt.Sprintf("/quotes/%d/plan/cancel", quote.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodePlanInvalid, resp.Code)
}

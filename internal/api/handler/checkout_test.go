package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/pkg/gateway"
	"github.com/qpay/quote_pay_server/internal/pkg/response"
	"github.com/qpay/quote_pay_server/internal/repository"
	"github.com/qpay/quote_pay_server/internal/service"
	"github.com/qpay/quote_pay_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubChargeGateway struct {
	result *gateway.ChargeResult
	err    error
}

func (s *stubChargeGateway) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubSubscriptionGateway struct {
	result *gateway.SubscriptionResult
}

func (s *stubSubscriptionGateway) CreateSubscription(ctx context.Context, req *gateway.SubscriptionRequest) (*gateway.SubscriptionResult, error) {
	return s.result, nil
}

func (s *stubSubscriptionGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return nil
}

func handlerTestConfig() *config.Config {
	return &config.Config{
		Plan: config.PlanConfig{
			MaxInstallments:       12,
			MinInstallmentAmount:  20.0,
			FirstChargeOffsetDays: 14,
			IntervalLength:        1,
			IntervalUnit:          "months",
		},
	}
}

func setupCheckoutHandler(t *testing.T, charge *stubChargeGateway) (*CheckoutHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	quoteRepo := repository.NewQuoteRepository(db)
	paymentRepo := repository.NewPlanPaymentRepository(db)
	cfg := handlerTestConfig()

	calculator := service.NewPlanCalculator(cfg)
	sub := &stubSubscriptionGateway{result: &gateway.SubscriptionResult{Accepted: true, SubscriptionID: "sub-1"}}
	subscriptionSvc := service.NewSubscriptionService(db, quoteRepo, paymentRepo, sub, cfg)
	checkoutSvc := service.NewCheckoutService(quoteRepo, paymentRepo, calculator, subscriptionSvc, charge, cfg)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return NewCheckoutHandler(checkoutSvc), db, cleanup
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func validCheckoutBody() dto.CheckoutRequest {
	return dto.CheckoutRequest{
		CustomerName:  "Alice Tester",
		CustomerEmail: "alice@example.com",
		LineItems: []dto.CheckoutLineItem{
			{Name: "Consulting", Quantity: 1, UnitPrice: 300.00},
		},
		TotalAmount: 300.00,
		Card: dto.CardInfo{
			Number: "4111111111111111",
			Expiry: "2030-12",
			CVV:    "123",
		},
		Billing: dto.BillingAddress{FirstName: "Alice", LastName: "Tester"},
	}
}

func TestCheckoutHandler_Submit_Success(t *testing.T) {
	handler, _, cleanup := setupCheckoutHandler(t, &stubChargeGateway{
		result: &gateway.ChargeResult{Approved: true, TransactionID: "txn-1", AuthCode: "A1"},
	})
	defer cleanup()

	router := gin.New()
	router.POST("/checkout", handler.Submit)

	w := performRequest(router, "POST", "/checkout", validCheckoutBody())
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "txn-1", data["transaction_id"])
	assert.NotZero(t, data["quote_number"])
}

func TestCheckoutHandler_Submit_Declined(t *testing.T) {
	handler, _, cleanup := setupCheckoutHandler(t, &stubChargeGateway{
		result: &gateway.ChargeResult{Approved: false, ReasonText: "card declined"},
	})
	defer cleanup()

	router := gin.New()
	router.POST("/checkout", handler.Submit)

	w := performRequest(router, "POST", "/checkout", validCheckoutBody())
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodePaymentDeclined, resp.Code)
	// 拒绝原因回传给付款人
	assert.Equal(t, "card declined", resp.Message)
}

func TestCheckoutHandler_Submit_InvalidBody(t *testing.T) {
	handler, _, cleanup := setupCheckoutHandler(t, &stubChargeGateway{})
	defer cleanup()

	router := gin.New()
	router.POST("/checkout", handler.Submit)

	body := validCheckoutBody()
	body.CustomerEmail = "not-an-email"

	w := performRequest(router, "POST", "/checkout", body)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestCheckoutHandler_Submit_PlanTooSmall(t *testing.T) {
	handler, _, cleanup := setupCheckoutHandler(t, &stubChargeGateway{
		result: &gateway.ChargeResult{Approved: true, TransactionID: "txn-1"},
	})
	defer cleanup()

	router := gin.New()
	router.POST("/checkout", handler.Submit)

	body := validCheckoutBody()
	body.TotalAmount = 10.00
	body.IsPaymentPlan = true
	body.Installments = 2

	w := performRequest(router, "POST", "/checkout", body)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodePlanInvalid, resp.Code)
}

func TestCheckoutHandler_Submit_GatewayUnavailable(t *testing.T) {
	handler, _, cleanup := setupCheckoutHandler(t, &stubChargeGateway{
		err: assert.AnError,
	})
	defer cleanup()

	router := gin.New()
	router.POST("/checkout", handler.Submit)

	w := performRequest(router, "POST", "/checkout", validCheckoutBody())
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeGatewayError, resp.Code)
}

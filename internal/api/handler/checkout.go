package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/pkg/gateway"
	"github.com/qpay/quote_pay_server/internal/pkg/response"
	"github.com/qpay/quote_pay_server/internal/service"
)

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// Submit 提交结算
// POST /api/v1/checkout
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.checkoutService.Submit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstallmentsRequired),
			errors.Is(err, service.ErrInvalidTotal),
			errors.Is(err, service.ErrInstallmentsOutOfRange),
			errors.Is(err, service.ErrInstallmentTooSmall):
			response.PlanError(c, err.Error())
		case errors.Is(err, gateway.ErrInvalidCardNumber),
			errors.Is(err, gateway.ErrCardExpired),
			errors.Is(err, gateway.ErrInvalidCVV):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrGatewayUnavailable):
			response.GatewayError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	if result.Declined {
		response.DeclinedError(c, result.DeclineReason)
		return
	}

	response.SuccessWithMessage(c, "支付成功", result)
}

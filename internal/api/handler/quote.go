package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/pkg/response"
	"github.com/qpay/quote_pay_server/internal/service"
)

type QuoteHandler struct {
	quoteService    *service.QuoteService
	subscriptionSvc *service.SubscriptionService
}

func NewQuoteHandler(quoteService *service.QuoteService, subscriptionSvc *service.SubscriptionService) *QuoteHandler {
	return &QuoteHandler{
		quoteService:    quoteService,
		subscriptionSvc: subscriptionSvc,
	}
}

// List 报价单列表
// GET /api/v1/quotes
func (h *QuoteHandler) List(c *gin.Context) {
	var query dto.QuoteListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	quotes, total, err := h.quoteService.List(&query)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, query.Page, query.PageSize, quotes)
}

// Get 报价单详情
// GET /api/v1/quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的报价单 ID")
		return
	}

	detail, err := h.quoteService.GetDetail(id)
	if err != nil {
		if errors.Is(err, service.ErrQuoteNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, detail)
}

// CancelPlan 运营主动取消分期计划
// POST /api/v1/quotes/:id/plan/cancel
func (h *QuoteHandler) CancelPlan(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的报价单 ID")
		return
	}

	quote, err := h.subscriptionSvc.CancelAtGateway(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuoteNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrNotAPaymentPlan),
			errors.Is(err, service.ErrPlanAlreadyClosed),
			errors.Is(err, service.ErrNoSubscriptionYet):
			response.PlanError(c, err.Error())
		default:
			response.GatewayError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "分期计划已取消", quote)
}

package handler

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/pkg/response"
	"github.com/qpay/quote_pay_server/internal/service"
)

type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// Receive 接收网关事件通知
// POST /api/v1/webhooks/gateway
// 永远返回 200：网关对非 2xx 会无限重试，内部失败靠日志与对账兜底
func (h *WebhookHandler) Receive(c *gin.Context) {
	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("webhook: unparseable payload: %v", err)
		response.Ack(c, "", false)
		return
	}

	processed := h.webhookService.HandleEvent(c.Request.Context(), &req)
	response.Ack(c, req.EventType, processed)
}

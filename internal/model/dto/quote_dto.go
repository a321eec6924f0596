package dto

import (
	"github.com/qpay/quote_pay_server/internal/model"
)

// QuoteListQuery 报价单列表查询参数
type QuoteListQuery struct {
	Page          int    `form:"page,default=1" binding:"min=1"`
	PageSize      int    `form:"page_size,default=20" binding:"min=1,max=100"`
	PaymentStatus string `form:"payment_status,omitempty"`
}

// QuoteDetail 报价单详情（含分期记录）
type QuoteDetail struct {
	Quote    *model.Quote                `json:"quote"`
	Payments []*model.PaymentPlanPayment `json:"payments,omitempty"`
}

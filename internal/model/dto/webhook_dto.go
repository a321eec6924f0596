package dto

// 网关事件类型（点分类法）
const (
	EventCaptureCreated         = "payment.capture.created"
	EventCaptureFailed          = "payment.capture.failed"
	EventRefundCreated          = "payment.refund.created"
	EventSubscriptionCreated    = "subscription.created"
	EventSubscriptionCancelled  = "subscription.cancelled"
	EventSubscriptionTerminated = "subscription.terminated"
	EventSubscriptionSuspended  = "subscription.suspended"
)

// WebhookRequest 网关通知
// 载荷不可信且可能残缺，所有字段都按可选解析；未知形状也要应答
type WebhookRequest struct {
	EventType string         `json:"eventType"`
	Payload   WebhookPayload `json:"payload"`
}

// WebhookPayload 事件载荷
// subscriptionId 是否存在区分一次性扣款与循环扣款事件
type WebhookPayload struct {
	TransactionID         string  `json:"transactionId,omitempty"`
	SubscriptionID        string  `json:"subscriptionId,omitempty"`
	SubscriptionPaymentID string  `json:"subscriptionPaymentId,omitempty"` // 网关侧本次扣款关联号
	InvoiceNumber         string  `json:"invoiceNumber,omitempty"`         // 对应 quote_number
	Amount                float64 `json:"amount,omitempty"`
	CustomerName          string  `json:"customerName,omitempty"`
	CustomerEmail         string  `json:"customerEmail,omitempty"`
	CustomerPhone         string  `json:"customerPhone,omitempty"`
}

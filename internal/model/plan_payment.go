package model

import (
	"time"
)

// 单期付款状态
const (
	InstallmentStatusPending  = "pending"
	InstallmentStatusPaid     = "paid"
	InstallmentStatusFailed   = "failed"
	InstallmentStatusRetrying = "retrying"
)

// PaymentPlanPayment 分期计划中的单期付款记录
// 所有期数在网关接受订阅后一次性创建，之后只随 webhook 事件变更状态，永不删除
type PaymentPlanPayment struct {
	ID            int64 `gorm:"primaryKey" json:"id"`
	QuoteID       int64 `gorm:"not null;uniqueIndex:idx_quote_payment_number" json:"quote_id"`
	PaymentNumber int   `gorm:"not null;uniqueIndex:idx_quote_payment_number" json:"payment_number"` // 1 起始
	TotalPayments int   `gorm:"not null" json:"total_payments"`                                      // 冗余字段，展示用

	Amount float64 `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status string  `gorm:"size:20;default:pending;index" json:"status"` // pending, paid, failed, retrying

	TransactionID         *string `gorm:"size:100;index" json:"transaction_id,omitempty"`
	SubscriptionPaymentID *string `gorm:"size:100;index" json:"subscription_payment_id,omitempty"` // 网关侧单次扣款关联号

	PaidAt     *time.Time `json:"paid_at,omitempty"`
	FailedAt   *time.Time `json:"failed_at,omitempty"`
	RetryCount int        `gorm:"default:0" json:"retry_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentPlanPayment) TableName() string {
	return "payment_plan_payments"
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 报价单支付状态
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// 分期计划状态
const (
	PlanStatusPending   = "pending"
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusCancelled = "cancelled"
	PlanStatusSuspended = "suspended"
)

// LineItem 报价单明细行
type LineItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// LineItemList 用于 JSON 数组字段
type LineItemList []LineItem

func (l LineItemList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *LineItemList) Scan(value interface{}) error {
	if value == nil {
		*l = []LineItem{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, l)
}

type Quote struct {
	ID          int64 `gorm:"primaryKey" json:"id"`
	QuoteNumber int64 `gorm:"uniqueIndex;not null" json:"quote_number"`

	// 客户快照（创建时复制，不是活引用）
	CustomerName    string `gorm:"size:100;not null" json:"customer_name"`
	CustomerEmail   string `gorm:"size:100;index" json:"customer_email"`
	CustomerPhone   string `gorm:"size:30" json:"customer_phone,omitempty"`
	CustomerAddress string `gorm:"size:255" json:"customer_address,omitempty"`

	LineItems      LineItemList `gorm:"type:json" json:"line_items"`
	TotalAmount    float64      `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	RecurringTotal float64      `gorm:"type:decimal(10,2);default:0" json:"recurring_total"`

	PaymentStatus string  `gorm:"size:20;default:pending;index" json:"payment_status"` // pending, paid, failed, refunded
	TransactionID *string `gorm:"size:100;index" json:"transaction_id,omitempty"`      // 首笔扣款的网关交易号
	ClientRefID   string  `gorm:"size:64;index" json:"client_ref_id,omitempty"`        // 提交扣款时生成的幂等参考号

	// 分期计划字段（仅 is_payment_plan 时有效）
	IsPaymentPlan     bool     `gorm:"default:false" json:"is_payment_plan"`
	PlanTotalAmount   *float64 `gorm:"type:decimal(10,2)" json:"plan_total_amount,omitempty"`
	Installments      *int     `json:"installments,omitempty"`
	InstallmentAmount *float64 `gorm:"type:decimal(10,2)" json:"installment_amount,omitempty"`
	CompletedPayments int      `gorm:"default:0" json:"completed_payments"`
	SubscriptionID    *string  `gorm:"size:100;index" json:"subscription_id,omitempty"` // 网关分配
	PlanStatus        *string  `gorm:"size:20;index" json:"plan_status,omitempty"`      // pending, active, completed, cancelled, suspended
	PlanWarning       string   `gorm:"size:500" json:"plan_warning,omitempty"`          // 非致命告警，留给运营处理

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quote) TableName() string {
	return "quotes"
}

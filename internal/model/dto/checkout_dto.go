package dto

// CardInfo 卡信息（只在内存中流转，不落库）
type CardInfo struct {
	Number string `json:"number" binding:"required"`
	Expiry string `json:"expiry" binding:"required"` // YYYY-MM
	CVV    string `json:"cvv" binding:"required"`
}

// BillingAddress 账单地址
type BillingAddress struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

// CheckoutLineItem 结算明细行
type CheckoutLineItem struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gt=0"`
}

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	CustomerName    string             `json:"customer_name" binding:"required"`
	CustomerEmail   string             `json:"customer_email" binding:"required,email"`
	CustomerPhone   string             `json:"customer_phone,omitempty"`
	CustomerAddress string             `json:"customer_address,omitempty"`
	LineItems       []CheckoutLineItem `json:"line_items" binding:"required,min=1,dive"`
	TotalAmount     float64            `json:"total_amount" binding:"required,gt=0"`
	IsPaymentPlan   bool               `json:"is_payment_plan"`
	Installments    int                `json:"installments,omitempty"` // is_payment_plan 时必填
	Card            CardInfo           `json:"card" binding:"required"`
	Billing         BillingAddress     `json:"billing" binding:"required"`
}

// CheckoutResult 结算结果
type CheckoutResult struct {
	QuoteID           int64   `json:"quote_id"`
	QuoteNumber       int64   `json:"quote_number"`
	PaymentStatus     string  `json:"payment_status"`
	Declined          bool    `json:"declined,omitempty"`
	DeclineReason     string  `json:"decline_reason,omitempty"`
	TransactionID     string  `json:"transaction_id,omitempty"`
	AuthCode          string  `json:"auth_code,omitempty"`
	IsPaymentPlan     bool    `json:"is_payment_plan"`
	FirstPayment      float64 `json:"first_payment,omitempty"`
	InstallmentAmount float64 `json:"installment_amount,omitempty"`
	Installments      int     `json:"installments,omitempty"`
	SubscriptionID    string  `json:"subscription_id,omitempty"`
	PlanStatus        string  `json:"plan_status,omitempty"`
	PlanWarning       string  `json:"plan_warning,omitempty"`
}

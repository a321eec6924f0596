package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/internal/model"
)

var quoteNumberSeq int64 = 2000

// TestQuote 创建测试报价单
func TestQuote(t *testing.T, db *gorm.DB, opts ...func(*model.Quote)) *model.Quote {
	t.Helper()

	quoteNumberSeq++
	quote := &model.Quote{
		QuoteNumber:   quoteNumberSeq,
		CustomerName:  fmt.Sprintf("Test Customer %d", quoteNumberSeq),
		CustomerEmail: fmt.Sprintf("customer_%d@example.com", quoteNumberSeq),
		LineItems: model.LineItemList{
			{Name: "Service", Quantity: 1, UnitPrice: 300.00},
		},
		TotalAmount:   300.00,
		PaymentStatus: model.PaymentStatusPending,
	}

	for _, opt := range opts {
		opt(quote)
	}

	if err := db.Create(quote).Error; err != nil {
		t.Fatalf("Failed to create test quote: %v", err)
	}

	return quote
}

// WithEmail 设置客户邮箱
func WithEmail(email string) func(*model.Quote) {
	return func(q *model.Quote) {
		q.CustomerEmail = email
	}
}

// WithTotal 设置总额
func WithTotal(total float64) func(*model.Quote) {
	return func(q *model.Quote) {
		q.TotalAmount = total
	}
}

// WithPaymentStatus 设置支付状态
func WithPaymentStatus(status string) func(*model.Quote) {
	return func(q *model.Quote) {
		q.PaymentStatus = status
	}
}

// WithTransactionID 设置首笔交易号
func WithTransactionID(transactionID string) func(*model.Quote) {
	return func(q *model.Quote) {
		q.TransactionID = &transactionID
	}
}

// WithPlan 设置为分期计划（首期 + N-1 期等额）
func WithPlan(total, recurring float64, installments int, planStatus string) func(*model.Quote) {
	return func(q *model.Quote) {
		q.IsPaymentPlan = true
		q.TotalAmount = total
		q.PlanTotalAmount = &total
		q.Installments = &installments
		q.InstallmentAmount = &recurring
		q.RecurringTotal = recurring
		q.PlanStatus = &planStatus
	}
}

// WithSubscriptionID 设置网关订阅号
func WithSubscriptionID(subscriptionID string) func(*model.Quote) {
	return func(q *model.Quote) {
		q.SubscriptionID = &subscriptionID
	}
}

// WithCreatedAt 设置创建时间（定时扫描测试用）
func WithCreatedAt(createdAt time.Time) func(*model.Quote) {
	return func(q *model.Quote) {
		q.CreatedAt = createdAt
	}
}

// TestPlanPayment 创建测试分期记录
func TestPlanPayment(t *testing.T, db *gorm.DB, quoteID int64, paymentNumber, totalPayments int, amount float64, opts ...func(*model.PaymentPlanPayment)) *model.PaymentPlanPayment {
	t.Helper()

	payment := &model.PaymentPlanPayment{
		QuoteID:       quoteID,
		PaymentNumber: paymentNumber,
		TotalPayments: totalPayments,
		Amount:        amount,
		Status:        model.InstallmentStatusPending,
	}

	for _, opt := range opts {
		opt(payment)
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("Failed to create test plan payment: %v", err)
	}

	return payment
}

// WithInstallmentStatus 设置分期状态
func WithInstallmentStatus(status string) func(*model.PaymentPlanPayment) {
	return func(p *model.PaymentPlanPayment) {
		p.Status = status
		if status == model.InstallmentStatusPaid {
			now := time.Now()
			p.PaidAt = &now
		}
	}
}

// WithInstallmentTxn 设置分期的网关交易号
func WithInstallmentTxn(transactionID string) func(*model.PaymentPlanPayment) {
	return func(p *model.PaymentPlanPayment) {
		p.TransactionID = &transactionID
	}
}

// WithSubscriptionPaymentID 设置网关单次扣款关联号
func WithSubscriptionPaymentID(subscriptionPaymentID string) func(*model.PaymentPlanPayment) {
	return func(p *model.PaymentPlanPayment) {
		p.SubscriptionPaymentID = &subscriptionPaymentID
	}
}

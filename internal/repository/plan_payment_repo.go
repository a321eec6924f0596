package repository

import (
	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/internal/model"
)

type PlanPaymentRepository struct {
	db *gorm.DB
}

func NewPlanPaymentRepository(db *gorm.DB) *PlanPaymentRepository {
	return &PlanPaymentRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *PlanPaymentRepository) WithTx(tx *gorm.DB) *PlanPaymentRepository {
	return &PlanPaymentRepository{db: tx}
}

func (r *PlanPaymentRepository) Create(payment *model.PaymentPlanPayment) error {
	return r.db.Create(payment).Error
}

// CreateBatch 一次性创建整组分期记录
func (r *PlanPaymentRepository) CreateBatch(payments []*model.PaymentPlanPayment) error {
	return r.db.Create(&payments).Error
}

func (r *PlanPaymentRepository) GetByID(id int64) (*model.PaymentPlanPayment, error) {
	var payment model.PaymentPlanPayment
	err := r.db.Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PlanPaymentRepository) GetByQuoteAndNumber(quoteID int64, paymentNumber int) (*model.PaymentPlanPayment, error) {
	var payment model.PaymentPlanPayment
	err := r.db.Where("quote_id = ? AND payment_number = ?", quoteID, paymentNumber).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByQuote 按期数排序列出报价单的全部分期
func (r *PlanPaymentRepository) ListByQuote(quoteID int64) ([]*model.PaymentPlanPayment, error) {
	var payments []*model.PaymentPlanPayment
	err := r.db.Where("quote_id = ?", quoteID).
		Order("payment_number ASC").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// NextPending 取下一条待支付分期（按期数顺序）
func (r *PlanPaymentRepository) NextPending(quoteID int64) (*model.PaymentPlanPayment, error) {
	var payment model.PaymentPlanPayment
	err := r.db.Where("quote_id = ? AND status = ?", quoteID, model.InstallmentStatusPending).
		Order("payment_number ASC").First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByTransactionID 按网关交易号查找（重放检测）
func (r *PlanPaymentRepository) GetByTransactionID(quoteID int64, transactionID string) (*model.PaymentPlanPayment, error) {
	var payment model.PaymentPlanPayment
	err := r.db.Where("quote_id = ? AND transaction_id = ?", quoteID, transactionID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetBySubscriptionPaymentID 按网关单次扣款关联号查找（重放检测 + 失败重试匹配）
func (r *PlanPaymentRepository) GetBySubscriptionPaymentID(quoteID int64, subscriptionPaymentID string) (*model.PaymentPlanPayment, error) {
	var payment model.PaymentPlanPayment
	err := r.db.Where("quote_id = ? AND subscription_payment_id = ?", quoteID, subscriptionPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PlanPaymentRepository) Update(payment *model.PaymentPlanPayment) error {
	return r.db.Save(payment).Error
}

func (r *PlanPaymentRepository) CountPending(quoteID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.PaymentPlanPayment{}).
		Where("quote_id = ? AND status = ?", quoteID, model.InstallmentStatusPending).
		Count(&count).Error
	return count, err
}

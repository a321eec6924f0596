package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qpay/quote_pay_server/internal/model"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *QuoteRepository) WithTx(tx *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: tx}
}

func (r *QuoteRepository) Create(quote *model.Quote) error {
	return r.db.Create(quote).Error
}

func (r *QuoteRepository) GetByID(id int64) (*model.Quote, error) {
	var quote model.Quote
	err := r.db.Where("id = ?", id).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetByIDForUpdate 行级锁读取，单个报价单内的并发 webhook 串行化
// sqlite 测试库会忽略锁提示，不影响语义
func (r *QuoteRepository) GetByIDForUpdate(id int64) (*model.Quote, error) {
	var quote model.Quote
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) GetByQuoteNumber(number int64) (*model.Quote, error) {
	var quote model.Quote
	err := r.db.Where("quote_number = ?", number).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) GetByTransactionID(transactionID string) (*model.Quote, error) {
	var quote model.Quote
	err := r.db.Where("transaction_id = ?", transactionID).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) GetBySubscriptionID(subscriptionID string) (*model.Quote, error) {
	var quote model.Quote
	err := r.db.Where("subscription_id = ?", subscriptionID).First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetLatestPendingByEmail 按客户邮箱取最近一张待支付报价单
func (r *QuoteRepository) GetLatestPendingByEmail(email string) (*model.Quote, error) {
	var quote model.Quote
	err := r.db.Where("customer_email = ? AND payment_status = ?", email, model.PaymentStatusPending).
		Order("created_at DESC").First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// NextQuoteNumber 生成下一个顺序报价单号
func (r *QuoteRepository) NextQuoteNumber() (int64, error) {
	var max int64
	err := r.db.Model(&model.Quote{}).
		Select("COALESCE(MAX(quote_number), 1000)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *QuoteRepository) Update(quote *model.Quote) error {
	return r.db.Save(quote).Error
}

func (r *QuoteRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Quote{}).Where("id = ?", id).Updates(fields).Error
}

func (r *QuoteRepository) List(page, pageSize int, paymentStatus string) ([]*model.Quote, int64, error) {
	query := r.db.Model(&model.Quote{})
	if paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quotes []*model.Quote
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&quotes).Error
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

// ListStalePendingPlans 查询长时间停留在 pending 的分期计划（运营告警用）
func (r *QuoteRepository) ListStalePendingPlans(cutoff time.Time) ([]*model.Quote, error) {
	var quotes []*model.Quote
	err := r.db.Where("is_payment_plan = ? AND plan_status = ? AND created_at < ?",
		true, model.PlanStatusPending, cutoff).
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

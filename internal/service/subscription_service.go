package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/model"
	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/pkg/gateway"
	"github.com/qpay/quote_pay_server/internal/repository"
)

var (
	ErrQuoteNotFound     = errors.New("报价单不存在")
	ErrNotAPaymentPlan   = errors.New("该报价单不是分期计划")
	ErrPlanAlreadyClosed = errors.New("分期计划已结束")
	ErrNoSubscriptionYet = errors.New("分期计划尚未建立网关订阅")
)

// SubscriptionGateway 循环扣款网关（测试时注入假实现）
type SubscriptionGateway interface {
	CreateSubscription(ctx context.Context, req *gateway.SubscriptionRequest) (*gateway.SubscriptionResult, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// SubscriptionService 分期订阅管理
// 首笔扣款成功后建立网关订阅并落库剩余分期；状态迁移由 webhook 驱动
type SubscriptionService struct {
	db          *gorm.DB
	quoteRepo   *repository.QuoteRepository
	paymentRepo *repository.PlanPaymentRepository
	gw          SubscriptionGateway
	cfg         *config.Config
}

func NewSubscriptionService(
	db *gorm.DB,
	quoteRepo *repository.QuoteRepository,
	paymentRepo *repository.PlanPaymentRepository,
	gw SubscriptionGateway,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		db:          db,
		quoteRepo:   quoteRepo,
		paymentRepo: paymentRepo,
		gw:          gw,
		cfg:         cfg,
	}
}

// CreatePlan 建立循环扣款订阅并落库第 2..N 期
// 失败不致命：首笔已扣款成功，这里只写告警留给运营补救，绝不反向冲正
func (s *SubscriptionService) CreatePlan(ctx context.Context, quote *model.Quote, calc *PlanCalculation, req *dto.CheckoutRequest) (subscriptionID, warning string) {
	startDate := time.Now().AddDate(0, 0, s.cfg.Plan.FirstChargeOffsetDays)

	result, err := s.gw.CreateSubscription(ctx, &gateway.SubscriptionRequest{
		RefID:            quote.ClientRefID,
		Name:             fmt.Sprintf("Quote %d payment plan", quote.QuoteNumber),
		Amount:           calc.RecurringAmount,
		IntervalLength:   s.cfg.Plan.IntervalLength,
		IntervalUnit:     s.cfg.Plan.IntervalUnit,
		StartDate:        startDate,
		TotalOccurrences: calc.TotalOccurrences,
		CardNumber:       req.Card.Number,
		CardExpiry:       req.Card.Expiry,
		CardCVV:          req.Card.CVV,
		InvoiceNumber:    fmt.Sprintf("%d", quote.QuoteNumber),
		BillTo:           toGatewayBillTo(req.Billing),
	})
	if err != nil {
		return "", s.recordPlanWarning(quote, fmt.Sprintf("订阅创建请求失败: %v", err))
	}
	if !result.Accepted {
		return "", s.recordPlanWarning(quote, fmt.Sprintf("网关拒绝订阅: %s", result.ReasonText))
	}

	// 订阅号与剩余分期原子落库，避免出现有订阅无分期的半成品状态
	err = s.db.Transaction(func(tx *gorm.DB) error {
		quoteRepo := s.quoteRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		quote.SubscriptionID = &result.SubscriptionID
		if err := quoteRepo.Update(quote); err != nil {
			return err
		}

		rows := make([]*model.PaymentPlanPayment, 0, calc.TotalOccurrences)
		for i := 2; i <= calc.Installments; i++ {
			rows = append(rows, &model.PaymentPlanPayment{
				QuoteID:       quote.ID,
				PaymentNumber: i,
				TotalPayments: calc.Installments,
				Amount:        calc.RecurringAmount,
				Status:        model.InstallmentStatusPending,
			})
		}
		return paymentRepo.CreateBatch(rows)
	})
	if err != nil {
		return result.SubscriptionID, s.recordPlanWarning(quote,
			fmt.Sprintf("订阅 %s 已在网关建立但本地落库失败: %v", result.SubscriptionID, err))
	}

	return result.SubscriptionID, ""
}

func (s *SubscriptionService) recordPlanWarning(quote *model.Quote, warning string) string {
	log.Printf("subscription: quote %d plan warning: %s", quote.QuoteNumber, warning)
	quote.PlanWarning = warning
	if err := s.quoteRepo.Update(quote); err != nil {
		log.Printf("subscription: failed to persist warning for quote %d: %v", quote.QuoteNumber, err)
	}
	return warning
}

// Cancel 将分期计划标记为取消，已入账的分期不受影响
// 在调用方事务内执行
func (s *SubscriptionService) Cancel(tx *gorm.DB, quote *model.Quote) error {
	return s.setPlanStatus(tx, quote, model.PlanStatusCancelled)
}

// Suspend 网关侧暂停（连续失败等），等待后续成功扣款恢复
func (s *SubscriptionService) Suspend(tx *gorm.DB, quote *model.Quote) error {
	return s.setPlanStatus(tx, quote, model.PlanStatusSuspended)
}

func (s *SubscriptionService) setPlanStatus(tx *gorm.DB, quote *model.Quote, status string) error {
	if !quote.IsPaymentPlan {
		return ErrNotAPaymentPlan
	}
	if quote.PlanStatus != nil && *quote.PlanStatus == model.PlanStatusCompleted {
		// 已完成是终态，迟到的取消/暂停事件不再改写
		return nil
	}
	quote.PlanStatus = &status
	return s.quoteRepo.WithTx(tx).Update(quote)
}

// CancelAtGateway 运营主动取消：先撤网关订阅，成功后本地标记取消
func (s *SubscriptionService) CancelAtGateway(ctx context.Context, quoteID int64) (*model.Quote, error) {
	quote, err := s.quoteRepo.GetByID(quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	if !quote.IsPaymentPlan {
		return nil, ErrNotAPaymentPlan
	}
	if quote.PlanStatus != nil &&
		(*quote.PlanStatus == model.PlanStatusCompleted || *quote.PlanStatus == model.PlanStatusCancelled) {
		return nil, ErrPlanAlreadyClosed
	}
	if quote.SubscriptionID == nil || *quote.SubscriptionID == "" {
		return nil, ErrNoSubscriptionYet
	}

	if err := s.gw.CancelSubscription(ctx, *quote.SubscriptionID); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.Cancel(tx, quote)
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

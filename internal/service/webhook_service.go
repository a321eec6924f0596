package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/model"
	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/pkg/gateway"
	"github.com/qpay/quote_pay_server/internal/pkg/queue"
	"github.com/qpay/quote_pay_server/internal/repository"
)

// TransactionLookup 网关交易详情查询，webhook 载荷缺身份信息时的兜底
type TransactionLookup interface {
	GetTransactionDetails(ctx context.Context, transactionID string) (*gateway.TransactionDetails, error)
}

// CRMNotifier CRM 同步通知（入队即可，真正同步由 worker 执行）
type CRMNotifier interface {
	Notify(ctx context.Context, msg *queue.SyncMessage) error
}

// QueueNotifier 把 CRM 同步任务推入 redis 队列
type QueueNotifier struct {
	q *queue.Queue
}

func NewQueueNotifier(q *queue.Queue) *QueueNotifier {
	return &QueueNotifier{q: q}
}

func (n *QueueNotifier) Notify(ctx context.Context, msg *queue.SyncMessage) error {
	return n.q.Push(ctx, msg)
}

// WebhookService 网关事件路由与对账
// 网关按 at-least-once 投递，所有处理路径必须幂等；
// 任何失败都不向网关返回错误（fail-open），只记日志
type WebhookService struct {
	db              *gorm.DB
	quoteRepo       *repository.QuoteRepository
	paymentRepo     *repository.PlanPaymentRepository
	subscriptionSvc *SubscriptionService
	lookup          TransactionLookup
	notifier        CRMNotifier
	cfg             *config.Config
}

func NewWebhookService(
	db *gorm.DB,
	quoteRepo *repository.QuoteRepository,
	paymentRepo *repository.PlanPaymentRepository,
	subscriptionSvc *SubscriptionService,
	lookup TransactionLookup,
	notifier CRMNotifier,
	cfg *config.Config,
) *WebhookService {
	return &WebhookService{
		db:              db,
		quoteRepo:       quoteRepo,
		paymentRepo:     paymentRepo,
		subscriptionSvc: subscriptionSvc,
		lookup:          lookup,
		notifier:        notifier,
		cfg:             cfg,
	}
}

// HandleEvent 处理一条网关通知
// 返回值表示是否产生了状态变更（或确认为幂等重放），只用于应答体，不影响 HTTP 状态
func (s *WebhookService) HandleEvent(ctx context.Context, req *dto.WebhookRequest) bool {
	switch req.EventType {
	case dto.EventCaptureCreated:
		if req.Payload.SubscriptionID != "" {
			return s.handleInstallmentCaptured(ctx, &req.Payload)
		}
		return s.handleOneTimeCaptured(ctx, &req.Payload)

	case dto.EventCaptureFailed:
		if req.Payload.SubscriptionID != "" {
			return s.handleInstallmentFailed(ctx, &req.Payload)
		}
		// 一次性扣款失败结算时已同步告知付款人，这里只记录
		log.Printf("webhook: one-time capture failed, txn=%s invoice=%s",
			req.Payload.TransactionID, req.Payload.InvoiceNumber)
		return true

	case dto.EventRefundCreated:
		log.Printf("webhook: refund created, txn=%s (manual reconciliation)", req.Payload.TransactionID)
		return true

	case dto.EventSubscriptionCreated:
		return s.handleSubscriptionCreated(ctx, &req.Payload)

	case dto.EventSubscriptionCancelled, dto.EventSubscriptionTerminated:
		return s.handleSubscriptionClosed(ctx, &req.Payload)

	case dto.EventSubscriptionSuspended:
		return s.handleSubscriptionSuspended(ctx, &req.Payload)

	default:
		log.Printf("webhook: unrecognized event type %q, ignored", req.EventType)
		return false
	}
}

// handleOneTimeCaptured 一次性扣款入账（含分期首期，首期以一次性交易形式提交）
func (s *WebhookService) handleOneTimeCaptured(ctx context.Context, p *dto.WebhookPayload) bool {
	quote := s.resolveQuoteByTransaction(ctx, p)
	if quote == nil {
		log.Printf("webhook: capture %s could not be matched to any quote", p.TransactionID)
		return false
	}

	var changed bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		quoteRepo := s.quoteRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		locked, err := quoteRepo.GetByIDForUpdate(quote.ID)
		if err != nil {
			return err
		}

		if locked.PaymentStatus == model.PaymentStatusPaid {
			// 重放：同一笔交易再次通知，什么都不做
			return nil
		}

		locked.PaymentStatus = model.PaymentStatusPaid
		if locked.TransactionID == nil && p.TransactionID != "" {
			locked.TransactionID = &p.TransactionID
		}

		if locked.IsPaymentPlan {
			if err := s.settleFirstInstallment(paymentRepo, locked, p); err != nil {
				return err
			}
		}

		if err := quoteRepo.Update(locked); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		log.Printf("webhook: failed to apply capture %s to quote %d: %v", p.TransactionID, quote.QuoteNumber, err)
		return false
	}

	if changed {
		s.notifyCRM(ctx, quote, dto.EventCaptureCreated,
			fmt.Sprintf("首笔付款入账，交易号 %s", p.TransactionID))
	}
	return true
}

// settleFirstInstallment 把首期分期标记为已支付并递增计数
func (s *WebhookService) settleFirstInstallment(paymentRepo *repository.PlanPaymentRepository, quote *model.Quote, p *dto.WebhookPayload) error {
	row, err := paymentRepo.GetByQuoteAndNumber(quote.ID, 1)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 首期记录在结算时创建；不存在说明落库曾失败，留给运营
			log.Printf("webhook: quote %d has no first installment row", quote.QuoteNumber)
			return nil
		}
		return err
	}
	if row.Status == model.InstallmentStatusPaid {
		return nil
	}

	now := time.Now()
	row.Status = model.InstallmentStatusPaid
	row.PaidAt = &now
	if p.TransactionID != "" {
		row.TransactionID = &p.TransactionID
	}
	if err := paymentRepo.Update(row); err != nil {
		return err
	}

	s.incrementCompleted(quote)
	return nil
}

// handleInstallmentCaptured 循环扣款入账
func (s *WebhookService) handleInstallmentCaptured(ctx context.Context, p *dto.WebhookPayload) bool {
	quote := s.resolveQuoteBySubscription(ctx, p)
	if quote == nil {
		log.Printf("webhook: installment capture for unknown subscription %s", p.SubscriptionID)
		return false
	}

	var changed bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		quoteRepo := s.quoteRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		locked, err := quoteRepo.GetByIDForUpdate(quote.ID)
		if err != nil {
			return err
		}

		row, replay, err := s.matchInstallmentRow(paymentRepo, locked, p)
		if err != nil {
			return err
		}
		if replay {
			return nil
		}
		if row == nil {
			log.Printf("webhook: quote %d has no pending installment for capture %s",
				locked.QuoteNumber, p.TransactionID)
			return nil
		}

		now := time.Now()
		row.Status = model.InstallmentStatusPaid
		row.PaidAt = &now
		if p.TransactionID != "" {
			row.TransactionID = &p.TransactionID
		}
		if p.SubscriptionPaymentID != "" {
			row.SubscriptionPaymentID = &p.SubscriptionPaymentID
		}
		if err := paymentRepo.Update(row); err != nil {
			return err
		}

		s.incrementCompleted(locked)
		if err := quoteRepo.Update(locked); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		log.Printf("webhook: failed to apply installment capture to quote %d: %v", quote.QuoteNumber, err)
		return false
	}

	if changed {
		s.notifyCRM(ctx, quote, dto.EventCaptureCreated,
			fmt.Sprintf("分期付款入账，交易号 %s", p.TransactionID))
	}
	return true
}

// matchInstallmentRow 为本次扣款事件找到对应的分期记录
// 优先按网关关联号匹配（重试成功会落到之前失败的那一期），否则取下一条 pending；
// 匹配到已支付记录说明是重放，replay=true
func (s *WebhookService) matchInstallmentRow(paymentRepo *repository.PlanPaymentRepository, quote *model.Quote, p *dto.WebhookPayload) (row *model.PaymentPlanPayment, replay bool, err error) {
	if p.SubscriptionPaymentID != "" {
		row, err = paymentRepo.GetBySubscriptionPaymentID(quote.ID, p.SubscriptionPaymentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}
	if row == nil && p.TransactionID != "" {
		row, err = paymentRepo.GetByTransactionID(quote.ID, p.TransactionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}
	if row != nil {
		if row.Status == model.InstallmentStatusPaid {
			return nil, true, nil
		}
		return row, false, nil
	}

	row, err = paymentRepo.NextPending(quote.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row, false, nil
}

// incrementCompleted 递增完成计数并推进计划状态
// 成功扣款会把 pending/suspended 的计划拉回 active；计数达到期数即完成
func (s *WebhookService) incrementCompleted(quote *model.Quote) {
	installments := 0
	if quote.Installments != nil {
		installments = *quote.Installments
	}

	if installments > 0 && quote.CompletedPayments >= installments {
		// 防御：计数已满仍收到入账事件，不再递增
		return
	}
	quote.CompletedPayments++

	if installments > 0 && quote.CompletedPayments >= installments {
		status := model.PlanStatusCompleted
		quote.PlanStatus = &status
		return
	}

	if quote.PlanStatus != nil &&
		(*quote.PlanStatus == model.PlanStatusPending || *quote.PlanStatus == model.PlanStatusSuspended) {
		status := model.PlanStatusActive
		quote.PlanStatus = &status
	}
}

// handleInstallmentFailed 循环扣款失败
// 计划保持 active（网关自己按节奏重试），只标记对应分期
func (s *WebhookService) handleInstallmentFailed(ctx context.Context, p *dto.WebhookPayload) bool {
	quote := s.resolveQuoteBySubscription(ctx, p)
	if quote == nil {
		log.Printf("webhook: installment failure for unknown subscription %s", p.SubscriptionID)
		return false
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		quoteRepo := s.quoteRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		locked, err := quoteRepo.GetByIDForUpdate(quote.ID)
		if err != nil {
			return err
		}

		var row *model.PaymentPlanPayment
		if p.SubscriptionPaymentID != "" {
			row, err = paymentRepo.GetBySubscriptionPaymentID(locked.ID, p.SubscriptionPaymentID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		if row == nil {
			row, err = paymentRepo.NextPending(locked.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("webhook: quote %d has no pending installment to mark failed", locked.QuoteNumber)
					return nil
				}
				return err
			}
		}
		if row.Status == model.InstallmentStatusPaid {
			// 迟到的失败通知，该期已入账，忽略
			return nil
		}

		now := time.Now()
		if row.Status == model.InstallmentStatusFailed || row.Status == model.InstallmentStatusRetrying {
			row.Status = model.InstallmentStatusRetrying
			row.RetryCount++
		} else {
			row.Status = model.InstallmentStatusFailed
		}
		row.FailedAt = &now
		if p.SubscriptionPaymentID != "" {
			row.SubscriptionPaymentID = &p.SubscriptionPaymentID
		}
		if p.TransactionID != "" {
			row.TransactionID = &p.TransactionID
		}
		return paymentRepo.Update(row)
	})
	if err != nil {
		log.Printf("webhook: failed to record installment failure for quote %d: %v", quote.QuoteNumber, err)
		return false
	}
	return true
}

// handleSubscriptionCreated 网关确认订阅建立，计划进入 active
func (s *WebhookService) handleSubscriptionCreated(ctx context.Context, p *dto.WebhookPayload) bool {
	quote := s.resolveQuoteBySubscription(ctx, p)
	if quote == nil {
		log.Printf("webhook: subscription.created for unknown subscription %s", p.SubscriptionID)
		return false
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		quoteRepo := s.quoteRepo.WithTx(tx)
		locked, err := quoteRepo.GetByIDForUpdate(quote.ID)
		if err != nil {
			return err
		}
		if locked.SubscriptionID == nil && p.SubscriptionID != "" {
			locked.SubscriptionID = &p.SubscriptionID
		}
		if locked.PlanStatus != nil && *locked.PlanStatus == model.PlanStatusPending {
			status := model.PlanStatusActive
			locked.PlanStatus = &status
		}
		return quoteRepo.Update(locked)
	})
	if err != nil {
		log.Printf("webhook: failed to confirm subscription for quote %d: %v", quote.QuoteNumber, err)
		return false
	}
	return true
}

func (s *WebhookService) handleSubscriptionClosed(ctx context.Context, p *dto.WebhookPayload) bool {
	quote := s.resolveQuoteBySubscription(ctx, p)
	if quote == nil {
		log.Printf("webhook: subscription close for unknown subscription %s", p.SubscriptionID)
		return false
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.quoteRepo.WithTx(tx).GetByIDForUpdate(quote.ID)
		if err != nil {
			return err
		}
		return s.subscriptionSvc.Cancel(tx, locked)
	})
	if err != nil {
		log.Printf("webhook: failed to cancel plan for quote %d: %v", quote.QuoteNumber, err)
		return false
	}

	s.notifyCRM(ctx, quote, dto.EventSubscriptionCancelled, "分期计划已在网关侧取消")
	return true
}

func (s *WebhookService) handleSubscriptionSuspended(ctx context.Context, p *dto.WebhookPayload) bool {
	quote := s.resolveQuoteBySubscription(ctx, p)
	if quote == nil {
		log.Printf("webhook: subscription.suspended for unknown subscription %s", p.SubscriptionID)
		return false
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.quoteRepo.WithTx(tx).GetByIDForUpdate(quote.ID)
		if err != nil {
			return err
		}
		return s.subscriptionSvc.Suspend(tx, locked)
	})
	if err != nil {
		log.Printf("webhook: failed to suspend plan for quote %d: %v", quote.QuoteNumber, err)
		return false
	}
	return true
}

// resolveQuoteByTransaction 一次性扣款事件的报价单定位链：
// 交易号 → 发票号 → 客户邮箱最近一张待支付 → 网关详情二次查询
func (s *WebhookService) resolveQuoteByTransaction(ctx context.Context, p *dto.WebhookPayload) *model.Quote {
	if p.TransactionID != "" {
		if quote, err := s.quoteRepo.GetByTransactionID(p.TransactionID); err == nil {
			return quote
		}
	}
	if quote := s.resolveByInvoice(p.InvoiceNumber); quote != nil {
		return quote
	}
	if p.CustomerEmail != "" {
		if quote, err := s.quoteRepo.GetLatestPendingByEmail(p.CustomerEmail); err == nil {
			return quote
		}
	}

	// 载荷残缺时回查网关补齐身份信息
	if s.lookup != nil && p.TransactionID != "" {
		details, err := s.lookup.GetTransactionDetails(ctx, p.TransactionID)
		if err != nil {
			log.Printf("webhook: transaction details lookup failed for %s: %v", p.TransactionID, err)
			return nil
		}
		if quote := s.resolveByInvoice(details.InvoiceNumber); quote != nil {
			return quote
		}
		if details.CustomerEmail != "" {
			if quote, err := s.quoteRepo.GetLatestPendingByEmail(details.CustomerEmail); err == nil {
				return quote
			}
		}
	}
	return nil
}

func (s *WebhookService) resolveQuoteBySubscription(ctx context.Context, p *dto.WebhookPayload) *model.Quote {
	if p.SubscriptionID != "" {
		if quote, err := s.quoteRepo.GetBySubscriptionID(p.SubscriptionID); err == nil {
			return quote
		}
	}
	if quote := s.resolveByInvoice(p.InvoiceNumber); quote != nil {
		return quote
	}
	if s.lookup != nil && p.TransactionID != "" {
		details, err := s.lookup.GetTransactionDetails(ctx, p.TransactionID)
		if err == nil && details.SubscriptionID != "" {
			if quote, err := s.quoteRepo.GetBySubscriptionID(details.SubscriptionID); err == nil {
				return quote
			}
		}
	}
	return nil
}

func (s *WebhookService) resolveByInvoice(invoiceNumber string) *model.Quote {
	if invoiceNumber == "" {
		return nil
	}
	number, err := strconv.ParseInt(invoiceNumber, 10, 64)
	if err != nil {
		return nil
	}
	quote, err := s.quoteRepo.GetByQuoteNumber(number)
	if err != nil {
		return nil
	}
	return quote
}

// notifyCRM 尽力而为的外部同步，任何失败（包括 panic）都不影响已提交的状态变更
func (s *WebhookService) notifyCRM(ctx context.Context, quote *model.Quote, eventType, note string) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("webhook: CRM notify panicked (non-fatal): %v", r)
		}
	}()

	msg := &queue.SyncMessage{
		QuoteID:     quote.ID,
		QuoteNumber: quote.QuoteNumber,
		EventType:   eventType,
		Email:       quote.CustomerEmail,
		Name:        quote.CustomerName,
		Phone:       quote.CustomerPhone,
		Note:        note,
		Amount:      quote.TotalAmount,
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		log.Printf("webhook: CRM notify failed (non-fatal): %v", err)
	}
}

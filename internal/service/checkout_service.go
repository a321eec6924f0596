package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/model"
	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/pkg/gateway"
	"github.com/qpay/quote_pay_server/internal/repository"
)

var (
	ErrInstallmentsRequired = errors.New("分期支付必须指定期数")
	ErrGatewayUnavailable   = errors.New("支付网关暂时不可用")
)

// ChargeGateway 一次性扣款网关（测试时注入假实现）
type ChargeGateway interface {
	Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error)
}

// CheckoutService 结算服务
// 负责报价单创建 + 首笔扣款；分期订阅的建立委托给 SubscriptionService
type CheckoutService struct {
	quoteRepo       *repository.QuoteRepository
	paymentRepo     *repository.PlanPaymentRepository
	calculator      *PlanCalculator
	subscriptionSvc *SubscriptionService
	gw              ChargeGateway
	cfg             *config.Config
}

func NewCheckoutService(
	quoteRepo *repository.QuoteRepository,
	paymentRepo *repository.PlanPaymentRepository,
	calculator *PlanCalculator,
	subscriptionSvc *SubscriptionService,
	gw ChargeGateway,
	cfg *config.Config,
) *CheckoutService {
	return &CheckoutService{
		quoteRepo:       quoteRepo,
		paymentRepo:     paymentRepo,
		calculator:      calculator,
		subscriptionSvc: subscriptionSvc,
		gw:              gw,
		cfg:             cfg,
	}
}

// Submit 提交结算
// 业务性拒绝（卡被拒）通过 result.Declined 表达，不是 error；
// error 只代表参数/计划非法或网关传输层失败
func (s *CheckoutService) Submit(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResult, error) {
	var calc *PlanCalculation
	if req.IsPaymentPlan {
		if req.Installments == 0 {
			return nil, ErrInstallmentsRequired
		}
		var err error
		calc, err = s.calculator.Split(req.TotalAmount, req.Installments)
		if err != nil {
			return nil, err
		}
	}

	quoteNumber, err := s.quoteRepo.NextQuoteNumber()
	if err != nil {
		return nil, err
	}

	quote := s.buildQuote(req, quoteNumber, calc)
	if err := s.quoteRepo.Create(quote); err != nil {
		return nil, err
	}

	chargeAmount := req.TotalAmount
	if calc != nil {
		chargeAmount = calc.FirstPayment
	}

	chargeResult, err := s.gw.Charge(ctx, &gateway.ChargeRequest{
		RefID:         quote.ClientRefID,
		Amount:        chargeAmount,
		CardNumber:    req.Card.Number,
		CardExpiry:    req.Card.Expiry,
		CardCVV:       req.Card.CVV,
		InvoiceNumber: fmt.Sprintf("%d", quote.QuoteNumber),
		LineItems:     toGatewayLineItems(req.LineItems),
		BillTo:        toGatewayBillTo(req.Billing),
	})
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidCardNumber) ||
			errors.Is(err, gateway.ErrCardExpired) ||
			errors.Is(err, gateway.ErrInvalidCVV) {
			return nil, err
		}
		// 超时的扣款可能已在网关侧成功，报价单保留 pending 等对账，不标记失败
		log.Printf("checkout: gateway charge failed for quote %d: %v", quote.QuoteNumber, err)
		return nil, ErrGatewayUnavailable
	}

	result := &dto.CheckoutResult{
		QuoteID:       quote.ID,
		QuoteNumber:   quote.QuoteNumber,
		PaymentStatus: quote.PaymentStatus,
		IsPaymentPlan: req.IsPaymentPlan,
	}

	if !chargeResult.Approved {
		quote.PaymentStatus = model.PaymentStatusFailed
		if err := s.quoteRepo.Update(quote); err != nil {
			log.Printf("checkout: failed to record decline for quote %d: %v", quote.QuoteNumber, err)
		}
		result.PaymentStatus = quote.PaymentStatus
		result.Declined = true
		result.DeclineReason = chargeResult.ReasonText
		return result, nil
	}

	// 入账确认以 webhook 为准，这里只记录交易号
	quote.TransactionID = &chargeResult.TransactionID
	if err := s.quoteRepo.Update(quote); err != nil {
		return nil, err
	}

	result.TransactionID = chargeResult.TransactionID
	result.AuthCode = chargeResult.AuthCode

	if calc != nil {
		result.FirstPayment = calc.FirstPayment
		result.InstallmentAmount = calc.RecurringAmount
		result.Installments = calc.Installments
		result.PlanStatus = model.PlanStatusPending

		if err := s.createFirstInstallmentRow(quote, calc, chargeResult.TransactionID); err != nil {
			return nil, err
		}

		// 订阅建立失败不回滚首笔扣款，只记录告警留给运营
		subscriptionID, warning := s.subscriptionSvc.CreatePlan(ctx, quote, calc, req)
		result.SubscriptionID = subscriptionID
		result.PlanWarning = warning
	}

	return result, nil
}

func (s *CheckoutService) buildQuote(req *dto.CheckoutRequest, quoteNumber int64, calc *PlanCalculation) *model.Quote {
	items := make(model.LineItemList, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, model.LineItem{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	quote := &model.Quote{
		QuoteNumber:     quoteNumber,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		LineItems:       items,
		TotalAmount:     req.TotalAmount,
		PaymentStatus:   model.PaymentStatusPending,
		ClientRefID:     uuid.New().String(),
		IsPaymentPlan:   req.IsPaymentPlan,
	}

	if calc != nil {
		planStatus := model.PlanStatusPending
		quote.PlanTotalAmount = &calc.Total
		quote.Installments = &calc.Installments
		quote.InstallmentAmount = &calc.RecurringAmount
		quote.PlanStatus = &planStatus
		quote.RecurringTotal = calc.RecurringAmount
	}

	return quote
}

// createFirstInstallmentRow 首期记录在结算时以 pending 创建，
// 入账确认与计数递增统一由 webhook 路径处理，避免重复计数
func (s *CheckoutService) createFirstInstallmentRow(quote *model.Quote, calc *PlanCalculation, transactionID string) error {
	row := &model.PaymentPlanPayment{
		QuoteID:       quote.ID,
		PaymentNumber: 1,
		TotalPayments: calc.Installments,
		Amount:        calc.FirstPayment,
		Status:        model.InstallmentStatusPending,
	}
	if transactionID != "" {
		row.TransactionID = &transactionID
	}
	return s.paymentRepo.Create(row)
}

func toGatewayLineItems(items []dto.CheckoutLineItem) []gateway.LineItem {
	out := make([]gateway.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, gateway.LineItem{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

func toGatewayBillTo(b dto.BillingAddress) gateway.BillingAddress {
	return gateway.BillingAddress{
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Address:   b.Address,
		City:      b.City,
		State:     b.State,
		Zip:       b.Zip,
		Country:   b.Country,
	}
}

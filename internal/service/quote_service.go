package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qpay/quote_pay_server/internal/model"
	"github.com/qpay/quote_pay_server/internal/model/dto"
	"github.com/qpay/quote_pay_server/internal/repository"
)

// QuoteService 报价单读侧投影
type QuoteService struct {
	quoteRepo   *repository.QuoteRepository
	paymentRepo *repository.PlanPaymentRepository
}

func NewQuoteService(quoteRepo *repository.QuoteRepository, paymentRepo *repository.PlanPaymentRepository) *QuoteService {
	return &QuoteService{quoteRepo: quoteRepo, paymentRepo: paymentRepo}
}

func (s *QuoteService) List(query *dto.QuoteListQuery) ([]*model.Quote, int64, error) {
	return s.quoteRepo.List(query.Page, query.PageSize, query.PaymentStatus)
}

// GetDetail 报价单详情，分期计划附带全部分期记录
func (s *QuoteService) GetDetail(id int64) (*dto.QuoteDetail, error) {
	quote, err := s.quoteRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}

	detail := &dto.QuoteDetail{Quote: quote}
	if quote.IsPaymentPlan {
		payments, err := s.paymentRepo.ListByQuote(quote.ID)
		if err != nil {
			return nil, err
		}
		detail.Payments = payments
	}
	return detail, nil
}

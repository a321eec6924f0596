package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/pkg/crm"
	"github.com/qpay/quote_pay_server/internal/pkg/queue"
	"github.com/qpay/quote_pay_server/internal/repository"
)

// Processor CRM 同步任务处理器
// 每条消息独立处理，失败只记日志不回队（CRM 同步是尽力而为的投递）
type Processor struct {
	quoteRepo *repository.QuoteRepository
	crmClient *crm.Client
	cfg       *config.Config
}

func NewProcessor(quoteRepo *repository.QuoteRepository, crmClient *crm.Client, cfg *config.Config) *Processor {
	return &Processor{
		quoteRepo: quoteRepo,
		crmClient: crmClient,
		cfg:       cfg,
	}
}

// Process 处理一条 CRM 同步任务
func (p *Processor) Process(ctx context.Context, msg *queue.SyncMessage) error {
	email := msg.Email
	name := msg.Name
	phone := msg.Phone

	// 消息缺身份信息时回库补齐（载荷来自 webhook，可能残缺）
	if email == "" && msg.QuoteID > 0 {
		quote, err := p.quoteRepo.GetByID(msg.QuoteID)
		if err != nil {
			return fmt.Errorf("failed to load quote %d: %w", msg.QuoteID, err)
		}
		email = quote.CustomerEmail
		name = quote.CustomerName
		phone = quote.CustomerPhone
	}
	if email == "" {
		log.Printf("crm sync: quote %d has no email, skipping", msg.QuoteNumber)
		return nil
	}

	note := msg.Note
	if note == "" {
		note = fmt.Sprintf("报价单 %d 事件 %s", msg.QuoteNumber, msg.EventType)
	}

	err := p.crmClient.Sync(ctx, &crm.SyncRequest{
		Email:       email,
		Name:        name,
		Phone:       phone,
		Note:        note,
		QuoteNumber: msg.QuoteNumber,
	})
	if err != nil {
		return fmt.Errorf("crm sync failed for quote %d: %w", msg.QuoteNumber, err)
	}

	log.Printf("crm sync: quote %d synced (%s)", msg.QuoteNumber, msg.EventType)
	return nil
}

package cron

import (
	"log"
	"time"

	"github.com/qpay/quote_pay_server/internal/repository"
)

// Service 定时任务
// 目前只有一项：扫描长期停留在 pending 的分期计划并写告警，
// 这类计划通常是首笔扣款后订阅建立失败或 webhook 丢失
type Service struct {
	quoteRepo        *repository.QuoteRepository
	pendingWarnHours int
	stopChan         chan struct{}
}

func NewService(quoteRepo *repository.QuoteRepository, pendingWarnHours int) *Service {
	return &Service{
		quoteRepo:        quoteRepo,
		pendingWarnHours: pendingWarnHours,
		stopChan:         make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runStalePlanSweep()
	log.Println("Cron service started (stale plan sweep)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runStalePlanSweep 每小时扫描一次
func (s *Service) runStalePlanSweep() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepStalePlans()
		}
	}
}

func (s *Service) sweepStalePlans() {
	warnHours := s.pendingWarnHours
	if warnHours <= 0 {
		warnHours = 24
	}
	cutoff := time.Now().Add(-time.Duration(warnHours) * time.Hour)

	quotes, err := s.quoteRepo.ListStalePendingPlans(cutoff)
	if err != nil {
		log.Printf("Stale plan sweep: query failed: %v", err)
		return
	}

	for _, quote := range quotes {
		if quote.PlanWarning != "" {
			continue
		}
		quote.PlanWarning = "分期计划长时间未激活，请人工核对网关订阅状态"
		if err := s.quoteRepo.Update(quote); err != nil {
			log.Printf("Stale plan sweep: failed to flag quote %d: %v", quote.QuoteNumber, err)
			continue
		}
		log.Printf("Stale plan sweep: flagged quote %d (pending since %s)",
			quote.QuoteNumber, quote.CreatedAt.Format(time.RFC3339))
	}

	if len(quotes) > 0 {
		log.Printf("Stale plan sweep: checked %d stale plans", len(quotes))
	}
}

// RunNow 立即执行一次扫描（测试或手动触发用）
func (s *Service) RunNow() {
	s.sweepStalePlans()
}

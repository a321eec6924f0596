package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/database"
	"github.com/qpay/quote_pay_server/internal/pkg/crm"
	"github.com/qpay/quote_pay_server/internal/pkg/queue"
	"github.com/qpay/quote_pay_server/internal/repository"
	"github.com/qpay/quote_pay_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// CRM 同步队列
	crmQueue := queue.NewQueue(rdb, cfg.Queue.CRMSyncQueue)

	// 初始化 Repository 和处理器
	quoteRepo := repository.NewQuoteRepository(db)
	crmClient := crm.NewClient(&cfg.CRM)
	processor := worker.NewProcessor(quoteRepo, crmClient, cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)

	// 启动 worker 循环
	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := crmQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop message: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: syncing quote %d", workerID, msg.QuoteNumber)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: quote %d sync failed: %v", workerID, msg.QuoteNumber, err)
					}
				}
			}
		}(i)
	}

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}

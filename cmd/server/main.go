package main

import (
	"fmt"
	"log"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/api"
	"github.com/qpay/quote_pay_server/internal/api/handler"
	"github.com/qpay/quote_pay_server/internal/database"
	"github.com/qpay/quote_pay_server/internal/pkg/cron"
	"github.com/qpay/quote_pay_server/internal/pkg/gateway"
	"github.com/qpay/quote_pay_server/internal/pkg/queue"
	"github.com/qpay/quote_pay_server/internal/repository"
	"github.com/qpay/quote_pay_server/internal/service"
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

	// 支付网关客户端
	gatewayClient := gateway.NewClient(&cfg.Gateway)
	log.Printf("Gateway client initialized (mode: %s)", cfg.Gateway.Mode)

	// 初始化 Repository
	quoteRepo := repository.NewQuoteRepository(db)
	paymentRepo := repository.NewPlanPaymentRepository(db)

	// 初始化 Service
	calculator := service.NewPlanCalculator(cfg)
	subscriptionService := service.NewSubscriptionService(db, quoteRepo, paymentRepo, gatewayClient, cfg)
	checkoutService := service.NewCheckoutService(quoteRepo, paymentRepo, calculator, subscriptionService, gatewayClient, cfg)
	webhookService := service.NewWebhookService(
		db, quoteRepo, paymentRepo, subscriptionService,
		gatewayClient, service.NewQueueNotifier(crmQueue), cfg,
	)
	quoteService := service.NewQuoteService(quoteRepo, paymentRepo)

	// 初始化 Handler
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	quoteHandler := handler.NewQuoteHandler(quoteService, subscriptionService)

	// 定时任务
	cronService := cron.NewService(quoteRepo, cfg.Plan.PendingWarnHours)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	router := api.NewRouter(checkoutHandler, webhookHandler, quoteHandler, cfg)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

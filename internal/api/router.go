package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qpay/quote_pay_server/config"
	"github.com/qpay/quote_pay_server/internal/api/handler"
	"github.com/qpay/quote_pay_server/internal/api/middleware"
)

type Router struct {
	checkoutHandler *handler.CheckoutHandler
	webhookHandler  *handler.WebhookHandler
	quoteHandler    *handler.QuoteHandler
	cfg             *config.Config
}

func NewRouter(
	checkoutHandler *handler.CheckoutHandler,
	webhookHandler *handler.WebhookHandler,
	quoteHandler *handler.QuoteHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		checkoutHandler: checkoutHandler,
		webhookHandler:  webhookHandler,
		quoteHandler:    quoteHandler,
		cfg:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// 结算
		api.POST("/checkout", r.checkoutHandler.Submit)

		// 网关回调
		api.POST("/webhooks/gateway", r.webhookHandler.Receive)

		// 报价单
		quotes := api.Group("/quotes")
		{
			quotes.GET("", r.quoteHandler.List)
			quotes.GET("/:id", r.quoteHandler.Get)
			quotes.POST("/:id/plan/cancel", r.quoteHandler.CancelPlan)
		}
	}

	return engine
}

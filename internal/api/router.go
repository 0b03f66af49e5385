package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/api/handler"
	"github.com/qs3c/billing_go_server/internal/api/middleware"
)

type Router struct {
	subscriptionHandler *handler.SubscriptionHandler
	installmentHandler  *handler.InstallmentHandler
	webhookHandler      *handler.WebhookHandler
	websocketHandler    *handler.WebSocketHandler
	cfg                 *config.Config
}

func NewRouter(
	subscriptionHandler *handler.SubscriptionHandler,
	installmentHandler *handler.InstallmentHandler,
	webhookHandler *handler.WebhookHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		subscriptionHandler: subscriptionHandler,
		installmentHandler:  installmentHandler,
		webhookHandler:      webhookHandler,
		websocketHandler:    websocketHandler,
		cfg:                 cfg,
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
		// WebSocket - 支付结果推送
		api.GET("/ws", r.websocketHandler.Handle)

		// 订阅
		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.POST("/create", r.subscriptionHandler.Create)
			subscriptions.POST("/:id/enable-autopay", r.subscriptionHandler.EnableAutoPay)
			subscriptions.POST("/:id/disable-autopay", r.subscriptionHandler.DisableAutoPay)
			subscriptions.POST("/:id/cancel", r.subscriptionHandler.Cancel)
			subscriptions.GET("/:id", r.subscriptionHandler.Get)
			subscriptions.GET("/user/:userId", r.subscriptionHandler.ListByUser)
			subscriptions.GET("/upcoming/:days", r.subscriptionHandler.Upcoming)

			// 网关回调，无认证，签名在服务内校验
			subscriptions.POST("/webhook", r.webhookHandler.Handle)
		}

		// 分期付款
		installments := api.Group("/installments")
		{
			installments.POST("/create-order", r.installmentHandler.CreateOrder)
			installments.POST("/verify-first", r.installmentHandler.VerifyFirst)
			installments.POST("/create-second-order", r.installmentHandler.CreateSecondOrder)
			installments.POST("/verify-second", r.installmentHandler.VerifySecond)
			installments.GET("/pending/:userId", r.installmentHandler.ListPending)
			installments.GET("/history/:userId", r.installmentHandler.ListHistory)
		}

		// 管理端
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.RequireAdmin())
		{
			admin.POST("/subscriptions/sweep", r.subscriptionHandler.Sweep)
			admin.POST("/installments/:id/mark-failed", r.installmentHandler.MarkFailed)
		}
	}

	return engine
}

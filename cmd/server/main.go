package main

import (
	"context"
	"fmt"
	"log"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/api"
	"github.com/qs3c/billing_go_server/internal/api/handler"
	"github.com/qs3c/billing_go_server/internal/database"
	"github.com/qs3c/billing_go_server/internal/pkg/gateway"
	"github.com/qs3c/billing_go_server/internal/pkg/pubsub"
	"github.com/qs3c/billing_go_server/internal/pkg/queue"
	"github.com/qs3c/billing_go_server/internal/pkg/ws"
	"github.com/qs3c/billing_go_server/internal/repository"
	"github.com/qs3c/billing_go_server/internal/service"
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

	// 通知队列与支付事件发布
	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	publisher := pubsub.NewPublisher(rdb)

	// WebSocket Hub，把 Redis 支付事件转发给等待结果的前端
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.PaymentMessage) {
			wsHub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg})
		})
		if err != nil {
			log.Printf("Payment event subscriber stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 支付网关客户端
	gatewayClient := gateway.NewClient(&cfg.Gateway)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	instRepo := repository.NewInstallmentRepository(db)

	// 初始化 Service
	subscriptionService := service.NewSubscriptionService(db, subRepo, planRepo, userRepo, gatewayClient, notifyQueue, publisher, cfg)
	installmentService := service.NewInstallmentService(db, instRepo, planRepo, userRepo, gatewayClient, notifyQueue, publisher, cfg)
	webhookService := service.NewWebhookService(subscriptionService, cfg)

	// 初始化 Handler
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)
	installmentHandler := handler.NewInstallmentHandler(installmentService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		subscriptionHandler,
		installmentHandler,
		webhookHandler,
		websocketHandler,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

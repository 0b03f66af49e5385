package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/internal/pkg/response"
	"github.com/qs3c/billing_go_server/internal/service"
)

type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// Handle 接收网关回调
// POST /api/v1/subscriptions/webhook
// 无论报文如何都回 200，避免网关无谓重试；异常只进日志。
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Success(c, nil)
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	h.webhookService.Process(c.Request.Context(), body, signature)

	response.Success(c, nil)
}

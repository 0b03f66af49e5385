package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/response"
	"github.com/qs3c/billing_go_server/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// Create 创建订阅
// POST /api/v1/subscriptions/create
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	sub, err := h.subscriptionService.Create(c.Request.Context(), req.UserID, req.PlanID, req.EnableAutoPay)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅创建成功", sub)
}

// EnableAutoPay 开启自动续费
// POST /api/v1/subscriptions/:id/enable-autopay
func (h *SubscriptionHandler) EnableAutoPay(c *gin.Context) {
	subID, err := parseIDParam(c, "id")
	if err != nil {
		response.ParamError(c, "无效的订阅ID")
		return
	}

	var req dto.EnableAutoPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	sub, err := h.subscriptionService.EnableAutoPay(c.Request.Context(), subID, req.UserID, req.PaymentMethodID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, sub)
}

// DisableAutoPay 关闭自动续费
// POST /api/v1/subscriptions/:id/disable-autopay
func (h *SubscriptionHandler) DisableAutoPay(c *gin.Context) {
	subID, err := parseIDParam(c, "id")
	if err != nil {
		response.ParamError(c, "无效的订阅ID")
		return
	}

	var req dto.OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	sub, err := h.subscriptionService.DisableAutoPay(c.Request.Context(), subID, req.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, sub)
}

// Cancel 取消订阅，可重复调用
// POST /api/v1/subscriptions/:id/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	subID, err := parseIDParam(c, "id")
	if err != nil {
		response.ParamError(c, "无效的订阅ID")
		return
	}

	var req dto.OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	sub, err := h.subscriptionService.Cancel(c.Request.Context(), subID, req.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已取消", sub)
}

// Get 获取单个订阅
// GET /api/v1/subscriptions/:id?user_id=
func (h *SubscriptionHandler) Get(c *gin.Context) {
	subID, err := parseIDParam(c, "id")
	if err != nil {
		response.ParamError(c, "无效的订阅ID")
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	sub, err := h.subscriptionService.GetForUser(subID, userID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, sub)
}

// ListByUser 获取用户全部订阅
// GET /api/v1/subscriptions/user/:userId
func (h *SubscriptionHandler) ListByUser(c *gin.Context) {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	subs, err := h.subscriptionService.ListByUser(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, subs)
}

// Upcoming 获取未来 N 天内到期扣款的自动续费订阅
// GET /api/v1/subscriptions/upcoming/:days
func (h *SubscriptionHandler) Upcoming(c *gin.Context) {
	days, err := strconv.Atoi(c.Param("days"))
	if err != nil || days < 1 {
		response.ParamError(c, "无效的天数")
		return
	}

	subs, err := h.subscriptionService.ListUpcomingRenewals(days)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, subs)
}

// Sweep 手动触发宽限期清理（管理端）
// POST /api/v1/admin/subscriptions/sweep
func (h *SubscriptionHandler) Sweep(c *gin.Context) {
	count, err := h.subscriptionService.SweepExpiredGracePeriods(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"expired": count})
}

func (h *SubscriptionHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrSubscriptionNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrPlanNotBillable),
		errors.Is(err, service.ErrSubscriptionExists):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrGateway):
		response.GatewayError(c, "")
	default:
		response.ServerError(c, "")
	}
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

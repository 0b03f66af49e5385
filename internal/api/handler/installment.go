package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/response"
	"github.com/qs3c/billing_go_server/internal/service"
)

type InstallmentHandler struct {
	installmentService *service.InstallmentService
}

func NewInstallmentHandler(installmentService *service.InstallmentService) *InstallmentHandler {
	return &InstallmentHandler{
		installmentService: installmentService,
	}
}

// CreateOrder 创建首期订单
// POST /api/v1/installments/create-order
func (h *InstallmentHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateInstallmentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.installmentService.CreateFirstOrder(c.Request.Context(), req.UserID, req.PlanID, req.FirstAmount)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订单创建成功", resp)
}

// VerifyFirst 核销首期支付
// POST /api/v1/installments/verify-first
func (h *InstallmentHandler) VerifyFirst(c *gin.Context) {
	var req dto.VerifyFirstInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	inst, err := h.installmentService.VerifyFirst(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "首期支付成功", inst)
}

// CreateSecondOrder 创建二期订单
// POST /api/v1/installments/create-second-order
func (h *InstallmentHandler) CreateSecondOrder(c *gin.Context) {
	var req dto.CreateSecondOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.installmentService.CreateSecondOrder(c.Request.Context(), req.InstallmentID, req.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订单创建成功", resp)
}

// VerifySecond 核销二期支付
// POST /api/v1/installments/verify-second
func (h *InstallmentHandler) VerifySecond(c *gin.Context) {
	var req dto.VerifySecondInstallmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	inst, err := h.installmentService.VerifySecond(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "分期已完成", inst)
}

// ListPending 用户待支付二期的分期
// GET /api/v1/installments/pending/:userId
func (h *InstallmentHandler) ListPending(c *gin.Context) {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	items, err := h.installmentService.ListPending(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// ListHistory 用户全部分期记录
// GET /api/v1/installments/history/:userId
func (h *InstallmentHandler) ListHistory(c *gin.Context) {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		response.ParamError(c, "无效的用户ID")
		return
	}

	items, err := h.installmentService.ListHistory(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// MarkFailed 管理员手动作废分期
// POST /api/v1/admin/installments/:id/mark-failed
func (h *InstallmentHandler) MarkFailed(c *gin.Context) {
	instID, err := parseIDParam(c, "id")
	if err != nil {
		response.ParamError(c, "无效的分期ID")
		return
	}

	inst, err := h.installmentService.MarkFailed(c.Request.Context(), instID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.SuccessWithMessage(c, "分期已作废", inst)
}

func (h *InstallmentHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrInstallmentNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrPlanNotBillable),
		errors.Is(err, service.ErrInvalidFirstAmount),
		errors.Is(err, service.ErrInstallmentExists),
		errors.Is(err, service.ErrOrderMismatch):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrSignatureInvalid):
		response.SignatureError(c, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrGateway):
		response.GatewayError(c, "")
	default:
		response.ServerError(c, "")
	}
}

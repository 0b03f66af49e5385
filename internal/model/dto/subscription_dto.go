package dto

// CreateSubscriptionRequest 创建订阅请求
type CreateSubscriptionRequest struct {
	UserID        int64 `json:"user_id" binding:"required"`
	PlanID        int64 `json:"plan_id" binding:"required"`
	EnableAutoPay bool  `json:"enable_auto_pay"`
}

// EnableAutoPayRequest 开启自动续费请求
type EnableAutoPayRequest struct {
	UserID          int64  `json:"user_id" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// OwnerRequest 仅携带归属用户的请求体（关闭自动续费/取消订阅）
type OwnerRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

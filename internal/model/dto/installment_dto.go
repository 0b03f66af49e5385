package dto

// CreateInstallmentOrderRequest 创建首期订单请求
type CreateInstallmentOrderRequest struct {
	UserID      int64   `json:"user_id" binding:"required"`
	PlanID      int64   `json:"plan_id" binding:"required"`
	FirstAmount float64 `json:"first_amount" binding:"required,gt=0"`
}

// InstallmentOrderResponse 网关订单信息
type InstallmentOrderResponse struct {
	OrderID            string              `json:"order_id"`
	Amount             float64             `json:"amount"`
	Currency           string              `json:"currency"`
	InstallmentDetails *InstallmentDetails `json:"installment_details,omitempty"`
}

// InstallmentDetails 分期金额明细
type InstallmentDetails struct {
	InstallmentID int64   `json:"installment_id"`
	TotalAmount   float64 `json:"total_amount"`
	FirstAmount   float64 `json:"first_amount"`
	SecondAmount  float64 `json:"second_amount"`
}

// VerifyFirstInstallmentRequest 首期支付验证请求
type VerifyFirstInstallmentRequest struct {
	UserID           int64  `json:"user_id" binding:"required"`
	PlanID           int64  `json:"plan_id" binding:"required"`
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// CreateSecondOrderRequest 创建二期订单请求
type CreateSecondOrderRequest struct {
	InstallmentID int64 `json:"installment_id" binding:"required"`
	UserID        int64 `json:"user_id" binding:"required"`
}

// VerifySecondInstallmentRequest 二期支付验证请求
type VerifySecondInstallmentRequest struct {
	InstallmentID    int64  `json:"installment_id" binding:"required"`
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

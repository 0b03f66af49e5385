package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应，状态码由调用方按错误类别决定
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Message: message,
	})
}

// ParamError 参数错误 / 校验失败
func ParamError(c *gin.Context, message string) {
	if message == "" {
		message = "参数错误"
	}
	Error(c, http.StatusBadRequest, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	if message == "" {
		message = "认证失败"
	}
	Error(c, http.StatusUnauthorized, message)
}

// NotFoundError 资源不存在或不属于当前用户
func NotFoundError(c *gin.Context, message string) {
	if message == "" {
		message = "资源不存在"
	}
	Error(c, http.StatusNotFound, message)
}

// ConflictError 非法状态流转
func ConflictError(c *gin.Context, message string) {
	if message == "" {
		message = "当前状态不允许该操作"
	}
	Error(c, http.StatusConflict, message)
}

// SignatureError 签名校验失败，一律硬拒绝
func SignatureError(c *gin.Context, message string) {
	if message == "" {
		message = "签名校验失败"
	}
	Error(c, http.StatusBadRequest, message)
}

// GatewayError 支付网关调用失败，客户端可重试
func GatewayError(c *gin.Context, message string) {
	if message == "" {
		message = "支付网关暂不可用"
	}
	Error(c, http.StatusBadGateway, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	if message == "" {
		message = "服务器内部错误"
	}
	Error(c, http.StatusInternalServerError, message)
}

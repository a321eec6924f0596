package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeResourceNotFound = 1003
	CodePaymentDeclined  = 2000
	CodeGatewayError     = 2001
	CodePlanInvalid      = 2002
	CodeServerError      = 5000
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "参数错误",
	CodeResourceNotFound: "资源不存在",
	CodePaymentDeclined:  "支付被拒绝",
	CodeGatewayError:     "支付网关通信失败",
	CodePlanInvalid:      "分期计划不合法",
	CodeServerError:      "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 分页数据结构
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// WebhookAck webhook 应答体
// 无论内部处理成败都以 200 返回，避免网关重试风暴
type WebhookAck struct {
	Success   bool   `json:"success"`
	EventType string `json:"eventType"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: PageData{
			Total:    total,
			Page:     page,
			PageSize: pageSize,
			Items:    items,
		},
	})
}

// Ack webhook 专用应答，HTTP 永远 200
func Ack(c *gin.Context, eventType string, processed bool) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: WebhookAck{
			Success:   processed,
			EventType: eventType,
		},
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	if message == "" {
		message = codeMessages[CodeParamError]
	}
	Error(c, CodeParamError, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	if message == "" {
		message = codeMessages[CodeResourceNotFound]
	}
	Error(c, CodeResourceNotFound, message)
}

// DeclinedError 支付被拒绝（正常业务结果，原因回传给付款人）
func DeclinedError(c *gin.Context, message string) {
	if message == "" {
		message = codeMessages[CodePaymentDeclined]
	}
	Error(c, CodePaymentDeclined, message)
}

// GatewayError 网关通信失败
func GatewayError(c *gin.Context, message string) {
	if message == "" {
		message = codeMessages[CodeGatewayError]
	}
	Error(c, CodeGatewayError, message)
}

// PlanError 分期计划校验失败
func PlanError(c *gin.Context, message string) {
	if message == "" {
		message = codeMessages[CodePlanInvalid]
	}
	Error(c, CodePlanInvalid, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	if message == "" {
		message = codeMessages[CodeServerError]
	}
	Error(c, CodeServerError, message)
}

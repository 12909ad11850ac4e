package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const msgSuccess = "success"

// Response 统一响应结构，业务码放在 status_code，HTTP 状态固定 200
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

func write(c *gin.Context, httpStatus, code int, msg string, data interface{}) {
	if code != CodeOK {
		data = attachRequestID(c, data)
	}
	c.JSON(httpStatus, Response{StatusCode: code, Msg: msg, Data: data})
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, CodeOK, msgSuccess, data)
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response:   Response{StatusCode: CodeOK, Msg: msgSuccess, Data: data},
		Pagination: pagination,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, msg string) {
	write(c, http.StatusOK, code, msg, nil)
}

// ErrorWithData 错误响应，data 中附带订单等上下文（如支付成功但库存不足）
func ErrorWithData(c *gin.Context, code int, msg string, data interface{}) {
	write(c, http.StatusOK, code, msg, data)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Forbidden 403
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}

// WithHTTPStatus 使用真实 HTTP 状态码返回，仅用于 Razorpay webhook 这类依赖状态码重试的调用方
func WithHTTPStatus(c *gin.Context, httpStatus int, msg string) {
	code := CodeOK
	if httpStatus >= http.StatusBadRequest {
		code = httpStatus
	}
	write(c, httpStatus, code, msg, nil)
}

// attachRequestID 错误响应附带 request_id 便于排查
func attachRequestID(c *gin.Context, data interface{}) interface{} {
	requestID := ""
	if c != nil {
		requestID = c.GetString("request_id")
	}
	if requestID == "" {
		return data
	}
	switch v := data.(type) {
	case nil:
		return gin.H{"request_id": requestID}
	case gin.H:
		if _, ok := v["request_id"]; !ok {
			v["request_id"] = requestID
		}
		return v
	default:
		return gin.H{"request_id": requestID, "data": data}
	}
}

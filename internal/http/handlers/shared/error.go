package shared

import (
	"errors"

	"github.com/setwear/internal/http/response"
	"github.com/setwear/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按文案 key 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondAppError(c, response.WrapError(code, Message(key), err))
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	RespondAppError(c, response.WrapError(code, msg, err))
}

// RespondAppError 输出 AppError，Expose 时对外返回底层原因
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr == nil {
		return
	}
	if appErr.Err != nil {
		log := RequestLog(c)
		if appErr.Code >= response.CodeInternal {
			log.Errorw("handler_error", "code", appErr.Code, "message", appErr.Message, "error", appErr.Err)
		} else {
			log.Warnw("handler_error", "code", appErr.Code, "message", appErr.Message, "error", appErr.Err)
		}
	}
	response.Error(c, appErr.Code, appErr.PublicMessage())
}

// MappedError 业务错误到接口错误响应的映射规则。
// Expose 为 true 时直接返回错误原文。
type MappedError struct {
	Target error
	Code   int
	Key    string
	Expose bool
}

// RespondMappedError 按规则顺序匹配错误，均未命中时使用兜底 code/key
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		if rule.Expose {
			RespondAppError(c, response.ExposeError(rule.Code, Message(rule.Key), err))
			return
		}
		RespondError(c, rule.Code, rule.Key, nil)
		return
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedErrors 合并多组映射规则
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

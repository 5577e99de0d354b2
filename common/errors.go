package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorKind 错误分类。调用方按 Kind 分支，不做字符串匹配
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input" // 参数缺失或非法，用户可修正
	KindGatewayError ErrorKind = "gateway_error" // 支付网关返回的失败，透传消息，不自动重试
	KindInternal     ErrorKind = "internal_error"
	KindRateLimited  ErrorKind = "rate_limited"
)

// APIError 统一的API错误。线上响应体只有 error 消息（和可选的追踪ID），
// 状态码和分类留在服务端
type APIError struct {
	Code    int       `json:"-"`
	Kind    ErrorKind `json:"-"`
	Message string    `json:"error"`
	ErrorID string    `json:"error_id,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrInvalidInput    = &APIError{Code: consts.StatusBadRequest, Kind: KindInvalidInput, Message: "Invalid request"}
	ErrInvalidAmount   = &APIError{Code: consts.StatusBadRequest, Kind: KindInvalidInput, Message: "Valid amount is required"}
	ErrMissingIntent   = &APIError{Code: consts.StatusBadRequest, Kind: KindInvalidInput, Message: "Payment Intent ID is required"}
	ErrInternalServer  = &APIError{Code: consts.StatusInternalServerError, Kind: KindInternal, Message: "Internal server error"}
	ErrTooManyRequests = &APIError{Code: consts.StatusTooManyRequests, Kind: KindRateLimited, Message: "Too many requests"}
)

// NewInvalidInput 参数错误（400）
func NewInvalidInput(message string) *APIError {
	return &APIError{Code: consts.StatusBadRequest, Kind: KindInvalidInput, Message: message}
}

// NewGatewayError 网关错误（500），消息透传给调用方
func NewGatewayError(message string) *APIError {
	return &APIError{Code: consts.StatusInternalServerError, Kind: KindGatewayError, Message: message}
}

// WithErrorID 复制一份并附加追踪ID，预定义错误本体不可变
func (e *APIError) WithErrorID(errorID string) *APIError {
	clone := *e
	clone.ErrorID = errorID
	return &clone
}

// WrapError 任意错误归一为 APIError。未分类的错误一律按内部错误处理，
// 不向客户端泄漏细节
func WrapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternalServer
}

// SendError 记日志并下发错误响应
func SendError(c *app.RequestContext, err error) {
	apiErr := WrapError(err)
	if apiErr.ErrorID == "" {
		apiErr = apiErr.WithErrorID("err-" + uuid.NewString()[:8])
	}

	fields := []zap.Field{
		zap.String("error_id", apiErr.ErrorID),
		zap.String("kind", string(apiErr.Kind)),
		zap.Int("status_code", apiErr.Code),
		zap.String("message", apiErr.Message),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
	}
	if err != nil && !errors.Is(err, apiErr) {
		fields = append(fields, zap.Error(err))
	}

	switch {
	case apiErr.Code >= 500:
		zap.L().Error("Request failed", fields...)
	default:
		// 4xx 是客户端问题，不值一个 Error 级别
		zap.L().Info("Client request error", fields...)
	}

	c.JSON(apiErr.Code, apiErr)
}

// ErrorHandler 请求结束后统一处理 handler 挂到 c.Errors 上的错误
func ErrorHandler() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Next(ctx)

		if len(c.Errors) > 0 {
			SendError(c, c.Errors.Last())
			c.Abort()
		}
	}
}

// RecoveryHandler 捕获 panic。任何请求路径都不允许拖垮进程
func RecoveryHandler() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				zap.L().Error("Panic recovered",
					zap.Error(err),
					zap.String("path", string(c.Path())),
					zap.String("method", string(c.Method())),
					zap.Stack("stack"))

				c.JSON(consts.StatusInternalServerError, utils.H{"error": "Internal server error"})
				c.Abort()
			}
		}()

		c.Next(ctx)
	}
}

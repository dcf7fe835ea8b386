// Package errors 将 service 层返回的错误转换为统一的 API 错误响应
package errors

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/middleware"
	"github.com/haierkeys/fast-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// AppError 统一应用错误结构体
// 字段与 pkg/app.Res 对齐，客户端可以用同一结构解析成功与失败响应
type AppError struct {
	// Code 错误码
	Code int `json:"code"`
	// Status 恒为 false
	Status bool `json:"status"`
	// Message 错误消息
	Message string `json:"message"`
	// Details 错误详情（可选）
	Details []string `json:"details,omitempty"`
	// TraceID 请求追踪ID
	TraceID string `json:"traceId,omitempty"`
	// Cause 原始错误（不序列化到JSON）
	Cause error `json:"-"`
	// Timestamp 错误发生时间
	Timestamp time.Time `json:"timestamp"`

	httpStatus int
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap 实现 errors.Unwrap 接口，支持错误链路追踪
func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus 响应使用的 HTTP 状态码
func (e *AppError) HTTPStatus() int {
	return e.httpStatus
}

// NewAppError 从 Code 对象创建 AppError
func NewAppError(c *code.Code, cause error) *AppError {
	return &AppError{
		Code:       c.Code(),
		Message:    c.Msg(),
		Details:    c.Details(),
		Cause:      cause,
		Timestamp:  time.Now(),
		httpStatus: c.StatusCode(),
	}
}

// FromError 将任意错误转换为 AppError
// *code.Code 原样保留，context 超时与取消映射为 ErrorOperationTimeout，其余错误隐藏为内部错误
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return NewAppError(codeErr, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewAppError(code.ErrorOperationTimeout.WithDetails(err.Error()), err)
	}

	return NewAppError(code.ErrorServerInternal, err)
}

// WithTraceID 设置 TraceID 并返回自身（链式调用）
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// ErrorResponse 统一错误响应处理
// 从 gin.Context 获取 TraceID，将错误转换为 AppError 并返回 JSON 响应
func ErrorResponse(c *gin.Context, err error) {
	appErr := FromError(err).WithTraceID(middleware.GetTraceIDFromGin(c))
	_ = c.Error(err)
	c.Set("status_code", appErr.httpStatus)
	c.JSON(appErr.httpStatus, appErr)
}

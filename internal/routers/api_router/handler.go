// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"context"
	"errors"

	"github.com/haierkeys/fast-backup-service/internal/app"
	"github.com/haierkeys/fast-backup-service/internal/middleware"
	pkgapp "github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	apperrors "github.com/haierkeys/fast-backup-service/pkg/errors"
	"github.com/haierkeys/fast-backup-service/pkg/workerpool"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 基础 Handler 结构体，封装 App Container
// 所有 API Handler 都应该嵌入此结构体以获得依赖注入能力
type Handler struct {
	App *app.App
}

// NewHandler 创建基础 Handler 实例
func NewHandler(a *app.App) *Handler {
	return &Handler{App: a}
}

// logError 记录带 Trace ID 的错误日志
func (h *Handler) logError(ctx context.Context, method string, err error) {
	h.App.Logger().Error("api operation failed",
		zap.String(logger.FieldMethod, method),
		zap.String(logger.FieldTraceID, middleware.GetTraceID(ctx)),
		zap.Error(err),
	)
}

// heavy 把备份/恢复类操作提交到 Worker Pool 执行并等待结果
func (h *Handler) heavy(ctx context.Context, fn func(context.Context) error) error {
	if h.App.IsShuttingDown() {
		return workerpool.ErrWorkerPoolClosed
	}
	done := h.App.TrackOperation()
	defer done()
	return h.App.SubmitTask(ctx, fn)
}

// fail 记录错误并输出统一错误响应，Worker Pool 排满时返回 429
func (h *Handler) fail(c *gin.Context, method string, err error) {
	if errors.Is(err, workerpool.ErrWorkerPoolFull) {
		pkgapp.NewResponse(c).ToResponse(code.ErrorTooManyRequests.WithDetails(err.Error()))
		return
	}
	if errors.Is(err, workerpool.ErrWorkerPoolClosed) {
		pkgapp.NewResponse(c).ToResponse(code.ErrorUnhealthy.WithDetails(err.Error()))
		return
	}
	var codeErr *code.Code
	if !errors.As(err, &codeErr) {
		h.logError(c.Request.Context(), method, err)
	}
	apperrors.ErrorResponse(c, err)
}

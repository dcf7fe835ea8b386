// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"context"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/app"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	pkgapp "github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/util"
	"github.com/haierkeys/fast-backup-service/pkg/workerpool"

	"github.com/gin-gonic/gin"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	*Handler
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(a)}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status        string               `json:"status"`        // "healthy" 或 "unhealthy"
	Version       string               `json:"version"`       // 服务版本号
	Instance      string               `json:"instance"`      // 主机标识
	Uptime        float64              `json:"uptime"`        // 运行时间（秒）
	Database      string               `json:"database"`      // 目录数据库 "connected" 或 "error"
	DocumentStore string               `json:"documentStore"` // 文档存储 "connected" 或 "error"
	Scheduler     *dto.SchedulerStatus `json:"scheduler"`
	Workers       workerpool.Metrics   `json:"workers"`
}

// Check 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态，包括目录数据库与文档存储连接
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /api/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	response := HealthResponse{
		Status:        "healthy",
		Version:       h.App.Version().Version,
		Instance:      util.InstanceID(app.Name),
		Uptime:        time.Since(h.App.StartTime).Seconds(),
		Database:      "connected",
		DocumentStore: "connected",
		Scheduler:     h.App.Scheduler.Status(),
		Workers:       h.App.WorkerPool().GetMetrics(),
	}

	if h.App.IsShuttingDown() {
		response.Status = "unhealthy"
	}

	// 检查数据库连接
	if err := h.App.DB.WithContext(c.Request.Context()).Exec("SELECT 1").Error; err != nil {
		response.Status = "unhealthy"
		response.Database = "error"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if _, err := h.App.Store.ListCollections(ctx); err != nil {
		response.Status = "unhealthy"
		response.DocumentStore = "error"
	}

	if response.Status != "healthy" {
		pkgapp.NewResponse(c).ToResponse(code.ErrorUnhealthy.WithData(response))
		return
	}

	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(response))
}

// Version 返回服务端版本信息
// @Summary 获取服务端版本信息
// @Tags 系统
// @Produce json
// @Success 200 {object} pkgapp.Res{data=pkgapp.VersionInfo} "Success"
// @Router /api/version [get]
func (h *HealthHandler) Version(c *gin.Context) {
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(h.App.Version()))
}

package routers

import (
	"time"

	"github.com/haierkeys/fast-backup-service/internal/app"
	"github.com/haierkeys/fast-backup-service/internal/middleware"
	"github.com/haierkeys/fast-backup-service/internal/routers/api_router"
	"github.com/haierkeys/fast-backup-service/pkg/limiter"

	ut "github.com/go-playground/universal-translator"
	"github.com/gin-gonic/gin"
)

// newMethodLimiters 备份、恢复等重量级接口单独限流，其余接口使用 rate-limit 配置
func newMethodLimiters(perSecond int) limiter.Face {
	heavy := []string{
		"POST /api/backup",
		"POST /api/backup/restore",
		"POST /api/recovery/plan/:id/execute",
		"POST /api/recovery/plan/:id/test",
	}
	l := limiter.NewMethodLimiter()
	for _, key := range heavy {
		l.AddBuckets(limiter.BucketRule{
			Key:          key,
			FillInterval: time.Minute,
			Capacity:     5,
			Quantum:      5,
		})
	}
	if perSecond <= 0 {
		return l
	}
	light := []string{
		"GET /api/backups",
		"GET /api/backup/stats",
		"GET /api/backup/:id",
		"DELETE /api/backup/:id",
		"POST /api/backup/cleanup",
		"GET /api/recovery/plans",
		"GET /api/recovery/stats",
	}
	for _, key := range light {
		l.AddBuckets(limiter.BucketRule{
			Key:          key,
			FillInterval: time.Second,
			Capacity:     int64(perSecond),
			Quantum:      int64(perSecond),
		})
	}
	return l
}

// NewRouter 创建 API 路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {

	// 获取配置
	cfg := appContainer.Config()

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfoWithConfig(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header)) // Trace ID 中间件
		api.Use(middleware.RateLimiter(newMethodLimiters(cfg.App.RateLimit)))
		api.Use(middleware.ContextTimeout(time.Duration(cfg.App.DefaultContextTimeout) * time.Second))
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))
		api.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

		// 创建 Handlers（注入 App Container）
		healthHandler := api_router.NewHealthHandler(appContainer)
		backupHandler := api_router.NewBackupHandler(appContainer)
		scheduleHandler := api_router.NewScheduleHandler(appContainer)
		recoveryHandler := api_router.NewRecoveryHandler(appContainer)

		api.GET("/health", healthHandler.Check)
		api.GET("/version", healthHandler.Version)

		api.POST("/backup", backupHandler.Create)
		api.GET("/backups", backupHandler.List)
		api.GET("/backup/stats", backupHandler.Stats)
		api.POST("/backup/cleanup", backupHandler.Cleanup)
		api.POST("/backup/restore", backupHandler.Restore)

		api.POST("/backup/schedule", scheduleHandler.Schedule)
		api.GET("/backup/schedule", scheduleHandler.Status)
		api.GET("/backup/schedule/:jobId", scheduleHandler.Details)
		api.DELETE("/backup/schedule/:jobId", scheduleHandler.Cancel)

		api.GET("/backup/:id", backupHandler.Inspect)
		api.DELETE("/backup/:id", backupHandler.Delete)

		api.POST("/recovery/plan", recoveryHandler.Create)
		api.GET("/recovery/plans", recoveryHandler.List)
		api.GET("/recovery/stats", recoveryHandler.Stats)
		api.GET("/recovery/plan/:id", recoveryHandler.Get)
		api.PUT("/recovery/plan/:id", recoveryHandler.Update)
		api.DELETE("/recovery/plan/:id", recoveryHandler.Delete)
		api.POST("/recovery/plan/:id/execute", recoveryHandler.Execute)
		api.POST("/recovery/plan/:id/test", recoveryHandler.Test)
	}

	r.NoRoute(middleware.NoFound())

	return r
}

// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/dao"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/service"
	"github.com/haierkeys/fast-backup-service/internal/task"
	pkgapp "github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/notify"
	"github.com/haierkeys/fast-backup-service/pkg/storage"
	"github.com/haierkeys/fast-backup-service/pkg/workerpool"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	Store    domain.DocumentStore
	Storager storage.Storager

	// 并发控制组件
	workerPool *workerpool.Pool
	Locks      *service.KeyLock

	// Repository 层
	CatalogRepo domain.BackupCatalogRepository
	PlanRepo    domain.RecoveryPlanRepository

	// Service 层
	BackupService   service.BackupService
	RecoveryService service.DisasterRecoveryService

	Scheduler *task.Scheduler

	StartTime time.Time

	// 关闭控制
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	wg           sync.WaitGroup
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 目录数据库连接（必须）
// store: 在线文档存储（必须）
// storager: 制品存储（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB, store domain.DocumentStore, storager storage.Storager) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if storager == nil {
		return nil, fmt.Errorf("artifact storage is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		Store:      store,
		Storager:   storager,
		StartTime:  time.Now(),
		shutdownCh: make(chan struct{}),
	}

	// 初始化 Worker Pool，限制同时执行的备份/恢复操作
	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)
	a.Locks = service.NewKeyLock()

	// 初始化 DAO（使用依赖注入）
	a.Dao = dao.New(db, logger)
	if cfg.Database.AutoMigrate {
		if err := a.Dao.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate catalog database: %w", err)
		}
	}

	// 初始化 Repository 层
	a.CatalogRepo = dao.NewBackupCatalogRepository(a.Dao)
	a.PlanRepo = dao.NewRecoveryPlanRepository(a.Dao)

	// 初始化 Service 层（依赖注入）
	sink := notify.NewDispatcher(cfg.Notify, logger)
	a.BackupService = service.NewBackupService(store, a.CatalogRepo, storager, a.Locks, logger)
	a.RecoveryService = service.NewDisasterRecoveryService(a.PlanRepo, a.BackupService, sink, a.Locks, logger)

	a.Scheduler = task.NewScheduler(a.BackupService, a.RecoveryService, cfg.Backup.Request(), cfg.Scheduler, logger)

	// 完成上次中断的删除
	if n, err := a.BackupService.RecoverPendingDeletions(context.Background()); err != nil {
		logger.Warn("recover pending deletions failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("pending deletions recovered on startup", zap.Int("count", n))
	}

	logger.Info("App container initialized successfully",
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers),
		zap.Int("workerPoolQueueSize", wpConfig.QueueSize))

	return a, nil
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close document store: %w", err))
		} else {
			a.logger.Info("Document store closed")
		}
	}
	if a.Dao != nil {
		if err := a.Dao.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			a.logger.Info("Database connection closed")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close completed with %d errors: %v", len(errs), errs)
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// SubmitTask 提交备份/恢复操作到 Worker Pool 并等待结果
// 返回错误如果池已满或已关闭
func (a *App) SubmitTask(ctx context.Context, task func(context.Context) error) error {
	return a.workerPool.Submit(ctx, task)
}

// WorkerPool 获取 Worker Pool（用于高级操作）
func (a *App) WorkerPool() *workerpool.Pool {
	return a.workerPool
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Scheduler -> Worker Pool -> 后台操作 -> 文档存储与数据库
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	// 如果没有提供 context，使用默认超时
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	first := false
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
		first = true
	})
	if !first {
		return nil
	}
	a.logger.Info("App container shutting down...")

	var errs []error

	// 0. 停止调度器（不中断正在执行的任务）
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	// 1. 关闭 Worker Pool（停止接受新任务，等待现有任务完成）
	if a.workerPool != nil {
		a.logger.Info("Shutting down worker pool...")
		if err := a.workerPool.Shutdown(ctx); err != nil {
			a.logger.Warn("Worker pool shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
		} else {
			a.logger.Info("Worker pool shutdown completed")
		}
	}

	// 2. 等待所有后台操作完成
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All background operations completed")
	case <-ctx.Done():
		a.logger.Warn("Shutdown timeout waiting for background operations")
		errs = append(errs, fmt.Errorf("background operations timeout: %w", ctx.Err()))
	}

	// 3. 关闭文档存储与数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors",
			zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// TrackOperation 跟踪后台操作（用于优雅关闭时等待）
// 返回一个函数，在操作完成时调用
func (a *App) TrackOperation() func() {
	a.wg.Add(1)
	return func() {
		a.wg.Done()
	}
}

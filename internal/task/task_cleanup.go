package task

import (
	"context"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/internal/service"
	"go.uber.org/zap"
)

// CleanupTask 保留策略清理任务
type CleanupTask struct {
	backups  service.BackupService
	config   *dto.BackupConfigRequest
	interval time.Duration
	logger   *zap.Logger
}

// NewCleanupTask 创建清理任务，config 为空时使用默认备份配置
func NewCleanupTask(backups service.BackupService, config *dto.BackupConfigRequest, interval time.Duration, logger *zap.Logger) *CleanupTask {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupTask{backups: backups, config: config, interval: interval, logger: logger}
}

// Name 返回任务名称
func (t *CleanupTask) Name() string {
	return CleanupJobID
}

// LoopInterval 返回执行间隔
func (t *CleanupTask) LoopInterval() time.Duration {
	return t.interval
}

// IsStartupRun 是否立即执行一次
func (t *CleanupTask) IsStartupRun() bool {
	return true
}

// Run 执行清理任务
func (t *CleanupTask) Run(ctx context.Context) error {
	res, err := t.backups.CleanupOldBackups(ctx, t.config)
	if err != nil {
		return err
	}
	t.logger.Info("task log",
		zap.String("task", t.Name()),
		zap.Int("deleted", res.Deleted),
		zap.Int("prunedFailed", res.PrunedFailed),
		zap.Int("remaining", res.Remaining),
		zap.Int("failed", len(res.Failed)),
	)
	return nil
}

package task

import (
	"context"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/internal/service"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"go.uber.org/zap"
)

// BackupJobTask handles one named recurring backup job
// BackupJobTask 命名的定时备份任务：每次执行先创建备份再按同一配置清理
type BackupJobTask struct {
	id       string
	config   *dto.BackupConfigRequest
	interval time.Duration
	backups  service.BackupService
	logger   *zap.Logger
}

// NewBackupJobTask creates a new BackupJobTask instance
func NewBackupJobTask(id string, config *dto.BackupConfigRequest, interval time.Duration, backups service.BackupService, logger *zap.Logger) *BackupJobTask {
	return &BackupJobTask{id: id, config: config, interval: interval, backups: backups, logger: logger}
}

// Name returns the job id
func (t *BackupJobTask) Name() string {
	return t.id
}

func (t *BackupJobTask) LoopInterval() time.Duration {
	return t.interval
}

func (t *BackupJobTask) IsStartupRun() bool {
	return false
}

// Run creates a backup then sweeps retention
func (t *BackupJobTask) Run(ctx context.Context) error {
	res, err := t.backups.CreateBackup(ctx, t.config)
	if err != nil {
		return err
	}
	t.logger.Info("scheduled backup created",
		zap.String(logger.FieldJobID, t.id),
		zap.String(logger.FieldBackupID, res.BackupID),
		zap.Int64(logger.FieldSize, res.Size),
	)

	if _, err := t.backups.CleanupOldBackups(ctx, t.config); err != nil {
		return err
	}
	return nil
}

package task

import (
	"context"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/service"
	"go.uber.org/zap"
)

// DrillTask 恢复计划定时演练任务
type DrillTask struct {
	recovery service.DisasterRecoveryService
	interval time.Duration
	logger   *zap.Logger
}

// NewDrillTask 创建演练任务
func NewDrillTask(recovery service.DisasterRecoveryService, interval time.Duration, logger *zap.Logger) *DrillTask {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DrillTask{recovery: recovery, interval: interval, logger: logger}
}

func (t *DrillTask) Name() string {
	return DrillJobID
}

func (t *DrillTask) LoopInterval() time.Duration {
	return t.interval
}

func (t *DrillTask) IsStartupRun() bool {
	return false
}

// Run 对到期的恢复计划执行演练
func (t *DrillTask) Run(ctx context.Context) error {
	ran, err := t.recovery.RunScheduledTests(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("task log", zap.String("task", t.Name()), zap.Int("tested", ran))
	return nil
}

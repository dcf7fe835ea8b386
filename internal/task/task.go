package task

import (
	"context"
	"time"
)

// Task 定义任务接口
type Task interface {
	Name() string                  // 任务名称
	Run(ctx context.Context) error // 执行任务
	LoopInterval() time.Duration   // 执行间隔
	IsStartupRun() bool            // 是否立即执行一次
}

// JobKind 任务类型
type JobKind string

const (
	JobKindCleanup JobKind = "cleanup"
	JobKindDrill   JobKind = "dr-tests"
	JobKindBackup  JobKind = "backup"
)

const (
	// CleanupJobID 内置保留策略清理任务
	CleanupJobID = "cleanup"
	// DrillJobID 内置恢复计划演练任务
	DrillJobID = "dr-tests"
)

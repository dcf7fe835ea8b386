package dto

import "time"

// ScheduleJobRequest 注册定时备份任务请求
type ScheduleJobRequest struct {
	JobID string `json:"jobId" form:"jobId" binding:"required" example:"nightly"`
	// Interval 执行间隔，支持 30m、1h、1d
	Interval string              `json:"interval" form:"interval" binding:"required" example:"1d"`
	Config   BackupConfigRequest `json:"config" form:"config"`
}

// SchedulerStatus 调度器状态
type SchedulerStatus struct {
	Running  bool     `json:"running"`
	Jobs     []string `json:"jobs"`
	JobCount int      `json:"jobCount"`
}

// JobDetails 单个任务详情
type JobDetails struct {
	JobID     string               `json:"jobId"`
	Kind      string               `json:"kind"`
	Interval  string               `json:"interval"`
	Config    *BackupConfigRequest `json:"config,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	LastRun   *time.Time           `json:"lastRun"`
	NextRun   *time.Time           `json:"nextRun"`
	LastError string               `json:"lastError,omitempty"`
	Runs      int64                `json:"runs"`
}

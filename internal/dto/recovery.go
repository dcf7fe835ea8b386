package dto

import (
	"time"

	"github.com/haierkeys/fast-backup-service/internal/domain"
)

// PlanNotificationsRequest 通知目标
type PlanNotificationsRequest struct {
	Email   []string `json:"email" binding:"omitempty,dive,email"`
	Webhook string   `json:"webhook" binding:"omitempty,url"`
}

// PlanScheduleRequest 演练计划
type PlanScheduleRequest struct {
	Enabled   bool   `json:"enabled"`
	Frequency string `json:"frequency" binding:"required,oneof=daily weekly monthly"`
	Time      string `json:"time" binding:"required,hhmm"`
}

// RecoveryPlanRequest 创建恢复计划请求
type RecoveryPlanRequest struct {
	Name          string                    `json:"name" binding:"required"`
	Description   string                    `json:"description"`
	BackupID      string                    `json:"backupId" binding:"required"`
	Collections   []string                  `json:"collections"`
	RestoreMode   string                    `json:"restoreMode" binding:"required,restore_mode"`
	Validation    *bool                     `json:"validation"`
	Notifications *PlanNotificationsRequest `json:"notifications"`
	Schedule      *PlanScheduleRequest      `json:"schedule"`
}

// RecoveryPlanUpdateRequest 更新恢复计划请求，仅更新非空字段
type RecoveryPlanUpdateRequest struct {
	Name          *string                   `json:"name" binding:"omitempty,min=1"`
	Description   *string                   `json:"description"`
	BackupID      *string                   `json:"backupId" binding:"omitempty,min=1"`
	Collections   []string                  `json:"collections"`
	RestoreMode   *string                   `json:"restoreMode" binding:"omitempty,restore_mode"`
	Validation    *bool                     `json:"validation"`
	Notifications *PlanNotificationsRequest `json:"notifications"`
	Schedule      *PlanScheduleRequest      `json:"schedule"`
	Status        *string                   `json:"status" binding:"omitempty,oneof=active inactive"`
}

// TestPlanRequest 演练请求
type TestPlanRequest struct {
	TestMode      *bool `json:"testMode"`
	ValidateOnly  bool  `json:"validateOnly"`
	NotifyResults *bool `json:"notifyResults"`
}

// Options 转换为演练选项，testMode 与 notifyResults 默认 true
func (r *TestPlanRequest) Options() domain.TestOptions {
	opts := domain.TestOptions{TestMode: true, ValidateOnly: r.ValidateOnly, NotifyResults: true}
	if r.TestMode != nil {
		opts.TestMode = *r.TestMode
	}
	if r.NotifyResults != nil {
		opts.NotifyResults = *r.NotifyResults
	}
	return opts
}

// RecoveryPlanDTO 恢复计划
type RecoveryPlanDTO struct {
	ID               string                    `json:"id"`
	Name             string                    `json:"name"`
	Description      string                    `json:"description,omitempty"`
	BackupID         string                    `json:"backupId"`
	Collections      []string                  `json:"collections,omitempty"`
	RestoreMode      domain.RestoreMode        `json:"restoreMode"`
	Validation       bool                      `json:"validation"`
	Notifications    *domain.PlanNotifications `json:"notifications,omitempty"`
	Schedule         *domain.PlanSchedule      `json:"schedule,omitempty"`
	Status           domain.PlanStatus         `json:"status"`
	LastTested       *time.Time                `json:"lastTested"`
	LastExecuted     *time.Time                `json:"lastExecuted"`
	ExecutionHistory []domain.ExecutionRecord  `json:"executionHistory"`
	TestResults      []domain.TestRecord       `json:"testResults"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
	// NextScheduledRun 下次计划演练时间，未启用计划时为空
	NextScheduledRun *time.Time `json:"nextScheduledRun"`
	// BackupInfo 关联备份信息，备份已删除时为空
	BackupInfo *BackupDTO `json:"backupInfo"`
}

// RecoveryStats 恢复计划统计
type RecoveryStats struct {
	TotalPlans       int `json:"totalPlans"`
	ActivePlans      int `json:"activePlans"`
	InactivePlans    int `json:"inactivePlans"`
	TestedPlans      int `json:"testedPlans"`
	UntestedPlans    int `json:"untestedPlans"`
	RecentlyExecuted int `json:"recentlyExecuted"`
}

// PlanIDRequest 按 ID 操作恢复计划
type PlanIDRequest struct {
	ID string `uri:"id" json:"id" form:"id" binding:"required"`
}

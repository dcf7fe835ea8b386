package model

import "github.com/haierkeys/fast-backup-service/pkg/timex"

const TableNameRecoveryPlan = "recovery_plan"

// RecoveryPlan mapped from table <recovery_plan>
type RecoveryPlan struct {
	ID               string      `gorm:"column:id;primaryKey;size:64" json:"id" form:"id"`
	Name             string      `gorm:"column:name;size:255;not null" json:"name" form:"name"`
	Description      string      `gorm:"column:description;type:text" json:"description" form:"description"`
	BackupID         string      `gorm:"column:backup_id;size:64;index:idx_recovery_plan_backup" json:"backupId" form:"backupId"`
	Collections      string      `gorm:"column:collections;type:text" json:"collections" form:"collections"`
	RestoreMode      string      `gorm:"column:restore_mode;size:16;not null" json:"restoreMode" form:"restoreMode"`
	Validation       bool        `gorm:"column:validation;default:true" json:"validation" form:"validation"`
	Notifications    string      `gorm:"column:notifications;type:text" json:"notifications" form:"notifications"`
	Schedule         string      `gorm:"column:schedule;type:text" json:"schedule" form:"schedule"`
	Status           string      `gorm:"column:status;size:16;not null;index:idx_recovery_plan_status" json:"status" form:"status"`
	LastTested       *timex.Time `gorm:"column:last_tested;type:datetime" json:"lastTested" form:"lastTested"`
	LastExecuted     *timex.Time `gorm:"column:last_executed;type:datetime" json:"lastExecuted" form:"lastExecuted"`
	ExecutionHistory string      `gorm:"column:execution_history;type:text" json:"executionHistory" form:"executionHistory"`
	TestResults      string      `gorm:"column:test_results;type:text" json:"testResults" form:"testResults"`
	CreatedAt        timex.Time  `gorm:"column:created_at;type:datetime;default:NULL;autoCreateTime:false;index:idx_recovery_plan_created" json:"createdAt" form:"createdAt"`
	UpdatedAt        timex.Time  `gorm:"column:updated_at;type:datetime;default:NULL;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName RecoveryPlan's table name
func (*RecoveryPlan) TableName() string {
	return TableNameRecoveryPlan
}

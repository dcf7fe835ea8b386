package domain

import "time"

// PlanStatus 恢复计划状态
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
)

// ScheduleFrequency 演练频率
type ScheduleFrequency string

const (
	FrequencyDaily   ScheduleFrequency = "daily"
	FrequencyWeekly  ScheduleFrequency = "weekly"
	FrequencyMonthly ScheduleFrequency = "monthly"
)

// ThresholdDays returns how many days must pass between scheduled tests
// ThresholdDays 两次计划演练之间需要间隔的天数
func (f ScheduleFrequency) ThresholdDays() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	}
	return 1
}

// RunStatus 执行与演练记录状态
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPassed    RunStatus = "passed"
)

// PlanNotifications 通知目标
type PlanNotifications struct {
	Email   []string `json:"email,omitempty"`
	Webhook string   `json:"webhook,omitempty"`
}

// Empty reports whether no target is configured
func (n *PlanNotifications) Empty() bool {
	return n == nil || (len(n.Email) == 0 && n.Webhook == "")
}

// PlanSchedule 演练计划
type PlanSchedule struct {
	Enabled   bool              `json:"enabled"`
	Frequency ScheduleFrequency `json:"frequency"`
	Time      string            `json:"time"` // HH:MM
}

// ExecutionRecord 执行记录
type ExecutionRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Result    *RestoreResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Status    RunStatus      `json:"status"`
}

// TestDetails 演练详情
type TestDetails struct {
	BackupExists bool           `json:"backupExists"`
	BackupSize   int64          `json:"backupSize,omitempty"`
	Collections  []string       `json:"collections,omitempty"`
	Restore      *RestoreResult `json:"restore,omitempty"`
}

// TestRecord 演练记录
type TestRecord struct {
	Timestamp    time.Time    `json:"timestamp"`
	TestMode     bool         `json:"testMode"`
	ValidateOnly bool         `json:"validateOnly"`
	Status       RunStatus    `json:"status"`
	Details      *TestDetails `json:"details,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// TestOptions 演练参数
type TestOptions struct {
	TestMode      bool
	ValidateOnly  bool
	NotifyResults bool
}

// RecoveryPlan 恢复计划领域模型
type RecoveryPlan struct {
	ID               string
	Name             string
	Description      string
	BackupID         string
	Collections      []string
	RestoreMode      RestoreMode
	Validation       bool
	Notifications    *PlanNotifications
	Schedule         *PlanSchedule
	Status           PlanStatus
	LastTested       *time.Time
	LastExecuted     *time.Time
	ExecutionHistory []ExecutionRecord
	TestResults      []TestRecord
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NotificationType 通知类型
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationFailure NotificationType = "failure"
	NotificationTest    NotificationType = "test"
)

// Notification is the structured message handed to a notification sink
// Notification 交给通知通道的结构化消息
type Notification struct {
	Type       NotificationType `json:"type"`
	PlanID     string           `json:"planId"`
	PlanName   string           `json:"planName"`
	Timestamp  time.Time        `json:"timestamp"`
	Message    string           `json:"message"`
	Result     *RestoreResult   `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	TestResult *TestRecord      `json:"testResult,omitempty"`
}

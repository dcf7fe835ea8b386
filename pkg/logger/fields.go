package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldBackupID 备份 ID 字段
	FieldBackupID = "backupId"

	// FieldPlanID 恢复计划 ID 字段
	FieldPlanID = "planId"

	// FieldJobID 调度任务 ID 字段
	FieldJobID = "jobId"

	// FieldCollection 集合名称字段
	FieldCollection = "collection"

	// FieldMode 恢复模式字段
	FieldMode = "mode"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldSize 大小字段
	FieldSize = "size"

	// FieldCount 数量字段
	FieldCount = "count"

	// FieldBucket 存储桶名称字段
	FieldBucket = "bucket"

	// FieldFileKey 文件键字段
	FieldFileKey = "fileKey"

	// FieldTarget 通知目标字段
	FieldTarget = "target"
)

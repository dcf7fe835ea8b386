package code

var (
	Success       = NewSuss(1, lang{en: "Success", zh_cn: "成功"})
	SuccessCreate = NewSuss(2, lang{en: "Created successfully", zh_cn: "创建成功"})
	SuccessUpdate = NewSuss(3, lang{en: "Updated successfully", zh_cn: "更新成功"})
	SuccessDelete = NewSuss(4, lang{en: "Deleted successfully", zh_cn: "删除成功"})

	ErrorServerInternal   = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorNotFoundAPI      = NewError(404, lang{en: "API not found", zh_cn: "找不到接口"})
	ErrorInvalidParams    = NewError(400, lang{en: "Invalid params", zh_cn: "参数错误"})
	ErrorTooManyRequests  = NewError(429, lang{en: "Too many requests", zh_cn: "请求过多"})
	ErrorUnhealthy        = NewError(503, lang{en: "Service unhealthy", zh_cn: "服务不可用"})
	ErrorOperationTimeout = NewError(408, lang{en: "Operation timed out or was cancelled", zh_cn: "操作超时或已取消"})

	// Storage
	// 存储
	ErrorInvalidStorageType = NewError(410, lang{en: "Invalid storage type", zh_cn: "无效的存储类型"})
	ErrorStorageKeyNotFound = NewError(411, lang{en: "Storage key not found", zh_cn: "存储对象不存在"})
	ErrorInvalidStoreType   = NewError(412, lang{en: "Invalid document store type", zh_cn: "无效的文档存储类型"})

	// Backup
	// 备份
	ErrorBackupNotFound        = NewError(420, lang{en: "Backup not found", zh_cn: "备份不存在"})
	ErrorBackupCreateFailed    = NewError(421, lang{en: "Backup creation failed", zh_cn: "备份创建失败"})
	ErrorBackupInvalidArtifact = NewError(422, lang{en: "Invalid backup artifact", zh_cn: "备份文件结构无效"})
	ErrorBackupChecksum        = NewError(423, lang{en: "Backup checksum mismatch", zh_cn: "备份校验和不匹配"})
	ErrorBackupVersion         = NewError(424, lang{en: "Unsupported backup version", zh_cn: "不支持的备份版本"})
	ErrorBackupCollectionEmpty = NewError(425, lang{en: "No collections to back up", zh_cn: "没有可备份的集合"})
	ErrorRestoreModeInvalid    = NewError(426, lang{en: "Invalid restore mode", zh_cn: "无效的恢复模式"})

	// Recovery plan
	// 恢复计划
	ErrorRecoveryPlanNotFound = NewError(430, lang{en: "Recovery plan not found", zh_cn: "恢复计划不存在"})
	ErrorRecoveryPlanInactive = NewError(431, lang{en: "Recovery plan is not active", zh_cn: "恢复计划未启用"})

	// Scheduler
	// 调度器
	ErrorBackupJobExists   = NewError(440, lang{en: "Backup job already exists", zh_cn: "备份任务已存在"})
	ErrorBackupJobNotFound = NewError(441, lang{en: "Backup job not found", zh_cn: "备份任务不存在"})
)

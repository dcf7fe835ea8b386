package dto

import (
	"time"

	"github.com/haierkeys/fast-backup-service/internal/domain"
)

// BackupConfigRequest 备份配置请求，未填写的字段使用默认值
type BackupConfigRequest struct {
	Collections    []string `json:"collections" form:"collections" example:"animals,staff"`
	IncludeIndexes *bool    `json:"includeIndexes" form:"includeIndexes" example:"true"`
	Compression    *bool    `json:"compression" form:"compression" example:"true"`
	Encryption     *bool    `json:"encryption" form:"encryption" example:"false"`
	RetentionDays  *int     `json:"retentionDays" form:"retentionDays" example:"30"`
	Schedule       *string  `json:"schedule" form:"schedule" example:"daily"`
	MaxBackups     *int     `json:"maxBackups" form:"maxBackups" example:"10"`
}

// BackupCreateResult 创建备份结果
type BackupCreateResult struct {
	BackupID    string                  `json:"backupId"`    // 备份ID
	Size        int64                   `json:"size"`        // 制品字节数
	Collections []string                `json:"collections"` // 已备份集合
	Metadata    domain.ArtifactMetadata `json:"metadata"`    // 元数据
}

// BackupDTO 备份列表条目
type BackupDTO struct {
	ID          string                  `json:"id"`          // 备份ID
	Timestamp   time.Time               `json:"timestamp"`   // 创建时间
	Config      domain.BackupConfig     `json:"config"`      // 备份配置
	Metadata    domain.ArtifactMetadata `json:"metadata"`    // 元数据
	Collections []string                `json:"collections"` // 集合
	Size        int64                   `json:"size"`        // 制品字节数
	Status      domain.BackupStatus     `json:"status"`      // 状态
}

// CollectionInspectDTO 制品内单个集合的摘要
type CollectionInspectDTO struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Size    int64    `json:"size"`
	Indexes []string `json:"indexes"`
}

// BackupInspectDTO 制品内容摘要
type BackupInspectDTO struct {
	BackupDTO
	Checksum        string                  `json:"checksum"`
	CollectionsInfo []*CollectionInspectDTO `json:"collectionsInfo"`
}

// RestoreRequest 恢复请求
type RestoreRequest struct {
	BackupID    string   `json:"backupId" form:"backupId" binding:"required" example:"backup_1714521600000_k3j9x2a1"`
	Collections []string `json:"collections" form:"collections"`
	// Mode replace、merge 或 skip，默认 replace
	Mode string `json:"mode" form:"mode" binding:"omitempty,restore_mode" example:"replace"`
	// ValidateData 默认 true
	ValidateData *bool `json:"validateData" form:"validateData"`
	// CreateIndexes 默认 true
	CreateIndexes *bool `json:"createIndexes" form:"createIndexes"`
}

// CleanupResult 清理结果
type CleanupResult struct {
	Deleted   int      `json:"deleted"`   // 删除数量
	Remaining int      `json:"remaining"` // 剩余数量
	Failed    []string `json:"failed,omitempty"`
	// PrunedFailed 超出保留天数而被清除的失败记录数量
	PrunedFailed int `json:"prunedFailed"`
}

// BackupStats 备份统计
type BackupStats struct {
	TotalBackups      int           `json:"totalBackups"`
	TotalSize         int64         `json:"totalSize"`
	AverageSize       int64         `json:"averageSize"`
	OldestBackup      *time.Time    `json:"oldestBackup"`
	NewestBackup      *time.Time    `json:"newestBackup"`
	SuccessfulBackups int64         `json:"successfulBackups"`
	FailedBackups     int64         `json:"failedBackups"`
	PendingDeletions  int64         `json:"pendingDeletions"`
	Storage           *StorageUsage `json:"storage,omitempty"`
}

// StorageUsage 制品存储卷使用情况
type StorageUsage struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

// BackupIDRequest 按 ID 操作备份
type BackupIDRequest struct {
	ID string `uri:"id" json:"id" form:"id" binding:"required"`
}

package domain

import "time"

// BackupStatus 备份目录记录状态
type BackupStatus string

const (
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
	// BackupStatusDeleting marks a catalog row whose artifact is being removed
	// BackupStatusDeleting 标记正在删除制品的目录记录（预写删除标记）
	BackupStatusDeleting BackupStatus = "deleting"
)

// BackupSchedule 备份频率
type BackupSchedule string

const (
	BackupScheduleHourly  BackupSchedule = "hourly"
	BackupScheduleDaily   BackupSchedule = "daily"
	BackupScheduleWeekly  BackupSchedule = "weekly"
	BackupScheduleMonthly BackupSchedule = "monthly"
)

// ArtifactFormatVersion is written into every artifact's metadata
// ArtifactFormatVersion 写入每个备份制品元数据的格式版本
const ArtifactFormatVersion = "1.0.0"

// BackupConfig 备份配置（已合并默认值）
type BackupConfig struct {
	Collections    []string       `json:"collections,omitempty"`
	IncludeIndexes bool           `json:"includeIndexes" default:"true"`
	Compression    bool           `json:"compression" default:"true"`
	Encryption     bool           `json:"encryption"`
	RetentionDays  int            `json:"retentionDays" default:"30" binding:"min=1,max=365"`
	Schedule       BackupSchedule `json:"schedule" default:"daily" binding:"oneof=hourly daily weekly monthly"`
	MaxBackups     int            `json:"maxBackups" default:"10" binding:"min=1,max=100"`
}

// ArtifactMetadata 备份制品元数据
type ArtifactMetadata struct {
	Version         string `json:"version"`
	TotalSize       int64  `json:"totalSize"`
	CollectionCount int    `json:"collectionCount"`
}

// CollectionSnapshot holds one collection as captured at backup time
// CollectionSnapshot 备份时捕获的单个集合
type CollectionSnapshot struct {
	Documents []Document        `json:"documents"`
	Indexes   []IndexDescriptor `json:"indexes"`
	Count     int               `json:"count"`
	Size      int64             `json:"size"`
}

// BackupArtifact is the immutable body written to the artifact store
// BackupArtifact 写入制品存储的不可变备份内容
type BackupArtifact struct {
	ID          string                         `json:"id"`
	Timestamp   time.Time                      `json:"timestamp"`
	Config      BackupConfig                   `json:"config"`
	Collections map[string]*CollectionSnapshot `json:"collections"`
	Metadata    ArtifactMetadata               `json:"metadata"`
}

// CollectionNames returns the collection keys of the artifact
// CollectionNames 返回制品中的集合名
func (a *BackupArtifact) CollectionNames() []string {
	names := make([]string, 0, len(a.Collections))
	for name := range a.Collections {
		names = append(names, name)
	}
	return names
}

// BackupCatalog 备份目录记录，列表与统计不需要读取制品内容
type BackupCatalog struct {
	ID          string
	Timestamp   time.Time
	Config      BackupConfig
	Metadata    ArtifactMetadata
	Collections []string
	StorageKey  string
	Size        int64 // 制品字节数
	Checksum    string
	Status      BackupStatus
	Message     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RestoreMode 恢复模式
type RestoreMode string

const (
	// RestoreModeReplace drops the target collection and inserts every artifact document
	RestoreModeReplace RestoreMode = "replace"
	// RestoreModeMerge upserts artifact documents by _id
	RestoreModeMerge RestoreMode = "merge"
	// RestoreModeSkip inserts only artifact documents whose _id is absent from the target
	RestoreModeSkip RestoreMode = "skip"
)

// Valid reports whether m is one of the three restore modes
func (m RestoreMode) Valid() bool {
	switch m {
	case RestoreModeReplace, RestoreModeMerge, RestoreModeSkip:
		return true
	}
	return false
}

// RestoreOptions 恢复参数（已解析）
type RestoreOptions struct {
	BackupID      string
	Collections   []string
	Mode          RestoreMode
	ValidateData  bool
	CreateIndexes bool
}

// RestoreResult 恢复结果
type RestoreResult struct {
	BackupID    string      `json:"backupId"`
	Collections []string    `json:"collections"`
	Mode        RestoreMode `json:"mode"`
	// Inserted counts documents written per collection
	Inserted map[string]int `json:"inserted,omitempty"`
}

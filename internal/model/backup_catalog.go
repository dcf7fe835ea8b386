package model

import "github.com/haierkeys/fast-backup-service/pkg/timex"

const TableNameBackupCatalog = "backup_catalog"

// BackupCatalog mapped from table <backup_catalog>
type BackupCatalog struct {
	ID              string     `gorm:"column:id;primaryKey;size:64" json:"id" form:"id"`
	Timestamp       timex.Time `gorm:"column:timestamp;type:datetime;index:idx_backup_catalog_ts" json:"timestamp" form:"timestamp"`
	Config          string     `gorm:"column:config;type:text" json:"config" form:"config"`                // JSON 备份配置
	Collections     string     `gorm:"column:collections;type:text" json:"collections" form:"collections"` // JSON 集合列表
	Version         string     `gorm:"column:version;size:32" json:"version" form:"version"`
	TotalSize       int64      `gorm:"column:total_size;not null;default:0" json:"totalSize" form:"totalSize"`
	CollectionCount int64      `gorm:"column:collection_count;not null;default:0" json:"collectionCount" form:"collectionCount"`
	StorageKey      string     `gorm:"column:storage_key;size:255" json:"storageKey" form:"storageKey"`
	Size            int64      `gorm:"column:size;not null;default:0" json:"size" form:"size"`
	Checksum        string     `gorm:"column:checksum;size:64" json:"checksum" form:"checksum"`
	Status          string     `gorm:"column:status;size:16;not null;index:idx_backup_catalog_status" json:"status" form:"status"`
	Message         string     `gorm:"column:message;type:text" json:"message" form:"message"`
	CreatedAt       timex.Time `gorm:"column:created_at;type:datetime;default:NULL;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt       timex.Time `gorm:"column:updated_at;type:datetime;default:NULL;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName BackupCatalog's table name
func (*BackupCatalog) TableName() string {
	return TableNameBackupCatalog
}

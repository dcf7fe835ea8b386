package model

import (
	"gorm.io/gorm"
)

// AutoMigrate migrates the table registered under key
// AutoMigrate 迁移指定 key 对应的表
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {
	case "BackupCatalog":
		return db.AutoMigrate(BackupCatalog{})
	case "RecoveryPlan":
		return db.AutoMigrate(RecoveryPlan{})
	}
	return nil
}

// AutoMigrateAll migrates every table of the catalog database
// AutoMigrateAll 迁移目录数据库的全部表
func AutoMigrateAll(db *gorm.DB) error {
	for _, key := range []string{"BackupCatalog", "RecoveryPlan"} {
		if err := AutoMigrate(db, key); err != nil {
			return err
		}
	}
	return nil
}

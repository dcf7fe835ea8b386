package domain

import (
	"context"
)

// DocumentStore is the generic collection interface of the live database
// DocumentStore 在线数据库的通用集合接口
type DocumentStore interface {
	// Find returns every document of the collection in natural order
	Find(ctx context.Context, collection string) ([]Document, error)
	InsertMany(ctx context.Context, collection string, docs []Document) error
	// ReplaceOrInsert replaces the document with the given _id or inserts it
	ReplaceOrInsert(ctx context.Context, collection string, id any, doc Document) error
	// Drop removes the collection, a missing collection is not an error
	Drop(ctx context.Context, collection string) error
	CreateCollection(ctx context.Context, collection string) error
	ListCollections(ctx context.Context) ([]string, error)
	ListIndexes(ctx context.Context, collection string) ([]IndexDescriptor, error)
	CreateIndex(ctx context.Context, collection string, index IndexDescriptor) error
	Close(ctx context.Context) error
}

// BackupCatalogRepository 备份目录仓储接口
type BackupCatalogRepository interface {
	Create(ctx context.Context, record *BackupCatalog) error
	// GetByID returns nil, nil when the record does not exist
	GetByID(ctx context.Context, id string) (*BackupCatalog, error)
	// List returns records with any of the statuses, newest first; no status means all
	List(ctx context.Context, statuses ...BackupStatus) ([]*BackupCatalog, error)
	UpdateStatus(ctx context.Context, id string, status BackupStatus, message string) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[BackupStatus]int64, error)
}

// RecoveryPlanRepository 恢复计划仓储接口
type RecoveryPlanRepository interface {
	Create(ctx context.Context, plan *RecoveryPlan) error
	// GetByID returns nil, nil when the plan does not exist
	GetByID(ctx context.Context, id string) (*RecoveryPlan, error)
	// List returns all plans, newest CreatedAt first
	List(ctx context.Context) ([]*RecoveryPlan, error)
	Update(ctx context.Context, plan *RecoveryPlan) error
	// Delete reports whether a plan was removed
	Delete(ctx context.Context, id string) (bool, error)
}

// NotificationSink is the transport for recovery notifications
// NotificationSink 恢复通知的投递通道
type NotificationSink interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	// SendWebhook posts payload as JSON to url
	SendWebhook(ctx context.Context, url string, payload any) error
}

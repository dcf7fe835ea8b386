package dao

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/model"
	"github.com/haierkeys/fast-backup-service/pkg/timex"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type backupCatalogRepository struct {
	dao *Dao
}

// NewBackupCatalogRepository 创建 BackupCatalogRepository 实例
func NewBackupCatalogRepository(dao *Dao) domain.BackupCatalogRepository {
	return &backupCatalogRepository{dao: dao}
}

// toDomain 解码目录行，config 或 collections 列损坏时返回错误
func (r *backupCatalogRepository) toDomain(m *model.BackupCatalog) (*domain.BackupCatalog, error) {
	if m == nil {
		return nil, nil
	}
	d := &domain.BackupCatalog{
		ID:         m.ID,
		Timestamp:  time.Time(m.Timestamp),
		StorageKey: m.StorageKey,
		Size:       m.Size,
		Checksum:   m.Checksum,
		Status:     domain.BackupStatus(m.Status),
		Message:    m.Message,
		Metadata: domain.ArtifactMetadata{
			Version:         m.Version,
			TotalSize:       m.TotalSize,
			CollectionCount: int(m.CollectionCount),
		},
		CreatedAt: time.Time(m.CreatedAt),
		UpdatedAt: time.Time(m.UpdatedAt),
	}
	if m.Config != "" {
		if err := sonic.UnmarshalString(m.Config, &d.Config); err != nil {
			return nil, errors.Wrapf(err, "decode config of catalog record %s", m.ID)
		}
	}
	if m.Collections != "" {
		if err := sonic.UnmarshalString(m.Collections, &d.Collections); err != nil {
			return nil, errors.Wrapf(err, "decode collections of catalog record %s", m.ID)
		}
	}
	return d, nil
}

func (r *backupCatalogRepository) toModel(d *domain.BackupCatalog) (*model.BackupCatalog, error) {
	cfg, err := sonic.MarshalString(d.Config)
	if err != nil {
		return nil, errors.Wrap(err, "encode backup config")
	}
	cols, err := sonic.MarshalString(d.Collections)
	if err != nil {
		return nil, errors.Wrap(err, "encode collections")
	}
	return &model.BackupCatalog{
		ID:              d.ID,
		Timestamp:       timex.Time(d.Timestamp),
		Config:          cfg,
		Collections:     cols,
		Version:         d.Metadata.Version,
		TotalSize:       d.Metadata.TotalSize,
		CollectionCount: int64(d.Metadata.CollectionCount),
		StorageKey:      d.StorageKey,
		Size:            d.Size,
		Checksum:        d.Checksum,
		Status:          string(d.Status),
		Message:         d.Message,
		CreatedAt:       timex.Time(d.CreatedAt),
		UpdatedAt:       timex.Time(d.UpdatedAt),
	}, nil
}

func (r *backupCatalogRepository) Create(ctx context.Context, record *domain.BackupCatalog) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	m, err := r.toModel(record)
	if err != nil {
		return err
	}
	return errors.Wrap(r.dao.DB(ctx).Create(m).Error, "create catalog record")
}

func (r *backupCatalogRepository) GetByID(ctx context.Context, id string) (*domain.BackupCatalog, error) {
	var m model.BackupCatalog
	err := r.dao.DB(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get catalog record")
	}
	return r.toDomain(&m)
}

func (r *backupCatalogRepository) List(ctx context.Context, statuses ...domain.BackupStatus) ([]*domain.BackupCatalog, error) {
	q := r.dao.DB(ctx).Model(&model.BackupCatalog{})
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		q = q.Where("status IN ?", values)
	}

	var rows []*model.BackupCatalog
	if err := q.Order("timestamp DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list catalog records")
	}
	result := make([]*domain.BackupCatalog, 0, len(rows))
	for _, m := range rows {
		d, err := r.toDomain(m)
		if err != nil {
			r.dao.logger.Warn("skip undecodable catalog record",
				zap.String("backupId", m.ID), zap.Error(err))
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

func (r *backupCatalogRepository) UpdateStatus(ctx context.Context, id string, status domain.BackupStatus, message string) error {
	res := r.dao.DB(ctx).Model(&model.BackupCatalog{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(status),
		"message":    message,
		"updated_at": timex.Now(),
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update catalog status")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *backupCatalogRepository) Delete(ctx context.Context, id string) error {
	return errors.Wrap(r.dao.DB(ctx).Where("id = ?", id).Delete(&model.BackupCatalog{}).Error, "delete catalog record")
}

func (r *backupCatalogRepository) CountByStatus(ctx context.Context) (map[domain.BackupStatus]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.dao.DB(ctx).Model(&model.BackupCatalog{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count catalog records")
	}
	counts := make(map[domain.BackupStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.BackupStatus(row.Status)] = row.Total
	}
	return counts, nil
}

package dao

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/model"
	"github.com/haierkeys/fast-backup-service/pkg/timex"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type recoveryPlanRepository struct {
	dao *Dao
}

// NewRecoveryPlanRepository 创建 RecoveryPlanRepository 实例
func NewRecoveryPlanRepository(dao *Dao) domain.RecoveryPlanRepository {
	return &recoveryPlanRepository{dao: dao}
}

// toDomain 解码计划行，任一 JSON 列损坏都返回错误
func (r *recoveryPlanRepository) toDomain(m *model.RecoveryPlan) (*domain.RecoveryPlan, error) {
	if m == nil {
		return nil, nil
	}
	d := &domain.RecoveryPlan{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		BackupID:         m.BackupID,
		RestoreMode:      domain.RestoreMode(m.RestoreMode),
		Validation:       m.Validation,
		Status:           domain.PlanStatus(m.Status),
		LastTested:       timePtr(m.LastTested),
		LastExecuted:     timePtr(m.LastExecuted),
		ExecutionHistory: []domain.ExecutionRecord{},
		TestResults:      []domain.TestRecord{},
		CreatedAt:        time.Time(m.CreatedAt),
		UpdatedAt:        time.Time(m.UpdatedAt),
	}
	columns := []struct {
		name  string
		value string
		dst   any
	}{
		{"collections", m.Collections, &d.Collections},
		{"notifications", m.Notifications, &d.Notifications},
		{"schedule", m.Schedule, &d.Schedule},
		{"execution_history", m.ExecutionHistory, &d.ExecutionHistory},
		{"test_results", m.TestResults, &d.TestResults},
	}
	for _, col := range columns {
		if err := decodeJSON(col.value, col.dst); err != nil {
			return nil, errors.Wrapf(err, "decode %s of recovery plan %s", col.name, m.ID)
		}
	}
	return d, nil
}

func (r *recoveryPlanRepository) toModel(d *domain.RecoveryPlan) (*model.RecoveryPlan, error) {
	m := &model.RecoveryPlan{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		BackupID:     d.BackupID,
		RestoreMode:  string(d.RestoreMode),
		Validation:   d.Validation,
		Status:       string(d.Status),
		LastTested:   timexPtr(d.LastTested),
		LastExecuted: timexPtr(d.LastExecuted),
		CreatedAt:    timex.Time(d.CreatedAt),
		UpdatedAt:    timex.Time(d.UpdatedAt),
	}
	var err error
	if m.Collections, err = encodeJSON(d.Collections); err != nil {
		return nil, err
	}
	if m.Notifications, err = encodeJSON(d.Notifications); err != nil {
		return nil, err
	}
	if m.Schedule, err = encodeJSON(d.Schedule); err != nil {
		return nil, err
	}
	if m.ExecutionHistory, err = encodeJSON(d.ExecutionHistory); err != nil {
		return nil, err
	}
	if m.TestResults, err = encodeJSON(d.TestResults); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *recoveryPlanRepository) Create(ctx context.Context, plan *domain.RecoveryPlan) error {
	m, err := r.toModel(plan)
	if err != nil {
		return err
	}
	return errors.Wrap(r.dao.DB(ctx).Create(m).Error, "create recovery plan")
}

func (r *recoveryPlanRepository) GetByID(ctx context.Context, id string) (*domain.RecoveryPlan, error) {
	var m model.RecoveryPlan
	err := r.dao.DB(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get recovery plan")
	}
	return r.toDomain(&m)
}

func (r *recoveryPlanRepository) List(ctx context.Context) ([]*domain.RecoveryPlan, error) {
	var rows []*model.RecoveryPlan
	if err := r.dao.DB(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list recovery plans")
	}
	result := make([]*domain.RecoveryPlan, 0, len(rows))
	for _, m := range rows {
		d, err := r.toDomain(m)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// Update saves every column of plan, the row must exist
func (r *recoveryPlanRepository) Update(ctx context.Context, plan *domain.RecoveryPlan) error {
	m, err := r.toModel(plan)
	if err != nil {
		return err
	}
	res := r.dao.DB(ctx).Model(&model.RecoveryPlan{}).Where("id = ?", plan.ID).
		Select("*").Omit("id", "created_at").Updates(m)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update recovery plan")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *recoveryPlanRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.dao.DB(ctx).Where("id = ?", id).Delete(&model.RecoveryPlan{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "delete recovery plan")
	}
	return res.RowsAffected > 0, nil
}

func encodeJSON(v any) (string, error) {
	s, err := sonic.MarshalString(v)
	if err != nil {
		return "", errors.Wrap(err, "encode plan column")
	}
	return s, nil
}

func decodeJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	return sonic.UnmarshalString(s, v)
}

func timePtr(t *timex.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := time.Time(*t)
	return &v
}

func timexPtr(t *time.Time) *timex.Time {
	if t == nil {
		return nil
	}
	v := timex.Time(*t)
	return &v
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"github.com/haierkeys/fast-backup-service/pkg/util"
	"github.com/haierkeys/fast-backup-service/pkg/validator"
	"github.com/jinzhu/copier"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// recentExecutionWindow 统计“近期执行”的时间窗口
const recentExecutionWindow = 7 * 24 * time.Hour

// DisasterRecoveryService defines the business service interface for recovery plans
// DisasterRecoveryService 定义恢复计划业务服务接口
type DisasterRecoveryService interface {
	CreateRecoveryPlan(ctx context.Context, req *dto.RecoveryPlanRequest) (*dto.RecoveryPlanDTO, error)
	GetRecoveryPlan(ctx context.Context, id string) (*dto.RecoveryPlanDTO, error)
	// ListRecoveryPlans returns every plan joined with its backup, newest first
	ListRecoveryPlans(ctx context.Context) ([]*dto.RecoveryPlanDTO, error)
	UpdateRecoveryPlan(ctx context.Context, id string, req *dto.RecoveryPlanUpdateRequest) (*dto.RecoveryPlanDTO, error)
	DeleteRecoveryPlan(ctx context.Context, id string) error
	// ExecuteRecovery restores the plan's backup and records the outcome in the plan history
	ExecuteRecovery(ctx context.Context, id string) (*domain.RestoreResult, error)
	// TestRecoveryPlan runs a drill, a failed drill is reported in the returned record
	TestRecoveryPlan(ctx context.Context, id string, opts domain.TestOptions) (*domain.TestRecord, error)
	GetRecoveryStats(ctx context.Context) (*dto.RecoveryStats, error)
	SendRecoveryNotification(ctx context.Context, plan *domain.RecoveryPlan, typ domain.NotificationType, result any) error
	ShouldRunScheduledTest(plan *domain.RecoveryPlan) bool
	// RunScheduledTests tests every active scheduled plan that is due and returns how many ran
	RunScheduledTests(ctx context.Context) (int, error)
}

type disasterRecoveryService struct {
	plans   domain.RecoveryPlanRepository
	backups BackupService
	sink    domain.NotificationSink
	locks   *KeyLock
	logger  *zap.Logger
	now     func() time.Time
}

var _ DisasterRecoveryService = (*disasterRecoveryService)(nil)

// NewDisasterRecoveryService creates DisasterRecoveryService instance, sink may be nil
// 创建 DisasterRecoveryService 实例，sink 可以为空
func NewDisasterRecoveryService(
	plans domain.RecoveryPlanRepository,
	backups BackupService,
	sink domain.NotificationSink,
	locks *KeyLock,
	logger *zap.Logger,
) DisasterRecoveryService {
	if locks == nil {
		locks = NewKeyLock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &disasterRecoveryService{
		plans:   plans,
		backups: backups,
		sink:    sink,
		locks:   locks,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *disasterRecoveryService) CreateRecoveryPlan(ctx context.Context, req *dto.RecoveryPlanRequest) (*dto.RecoveryPlanDTO, error) {
	if req == nil {
		return nil, code.ErrorInvalidParams
	}
	if err := validator.Struct(req); err != nil {
		return nil, code.ErrorInvalidParams.WithDetails(validator.Messages(err)...)
	}

	now := s.now()
	plan := &domain.RecoveryPlan{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		BackupID:         req.BackupID,
		Collections:      req.Collections,
		RestoreMode:      domain.RestoreMode(req.RestoreMode),
		Validation:       true,
		Notifications:    toPlanNotifications(req.Notifications),
		Schedule:         toPlanSchedule(req.Schedule),
		Status:           domain.PlanStatusActive,
		ExecutionHistory: []domain.ExecutionRecord{},
		TestResults:      []domain.TestRecord{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if plan.Name == "" {
		return nil, code.ErrorInvalidParams.WithDetails("name is required")
	}
	if req.Validation != nil {
		plan.Validation = *req.Validation
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, errors.Wrap(err, "create recovery plan")
	}
	s.logger.Info("recovery plan created",
		zap.String(logger.FieldPlanID, plan.ID),
		zap.String(logger.FieldBackupID, plan.BackupID),
	)
	return s.toDTO(plan, nil), nil
}

func (s *disasterRecoveryService) GetRecoveryPlan(ctx context.Context, id string) (*dto.RecoveryPlanDTO, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	backup, err := s.backups.GetBackup(ctx, plan.BackupID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(plan, backup), nil
}

func (s *disasterRecoveryService) ListRecoveryPlans(ctx context.Context) ([]*dto.RecoveryPlanDTO, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}
	backups, err := s.backups.ListBackups(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*dto.BackupDTO, len(backups))
	for _, b := range backups {
		byID[b.ID] = b
	}

	out := make([]*dto.RecoveryPlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, s.toDTO(p, byID[p.BackupID]))
	}
	return out, nil
}

// UpdateRecoveryPlan applies the non-empty fields of req
// UpdateRecoveryPlan 更新请求中的非空字段
func (s *disasterRecoveryService) UpdateRecoveryPlan(ctx context.Context, id string, req *dto.RecoveryPlanUpdateRequest) (*dto.RecoveryPlanDTO, error) {
	if req == nil {
		return nil, code.ErrorInvalidParams
	}
	if err := validator.Struct(req); err != nil {
		return nil, code.ErrorInvalidParams.WithDetails(validator.Messages(err)...)
	}

	unlock := s.locks.Lock(planLockKey(id))
	defer unlock()

	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, code.ErrorInvalidParams.WithDetails("name is required")
		}
		plan.Name = name
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.BackupID != nil {
		plan.BackupID = *req.BackupID
	}
	if req.Collections != nil {
		plan.Collections = req.Collections
	}
	if req.RestoreMode != nil {
		plan.RestoreMode = domain.RestoreMode(*req.RestoreMode)
	}
	if req.Validation != nil {
		plan.Validation = *req.Validation
	}
	if req.Notifications != nil {
		plan.Notifications = toPlanNotifications(req.Notifications)
	}
	if req.Schedule != nil {
		plan.Schedule = toPlanSchedule(req.Schedule)
	}
	if req.Status != nil {
		plan.Status = domain.PlanStatus(*req.Status)
	}
	plan.UpdatedAt = s.now()

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, errors.Wrap(err, "update recovery plan")
	}
	s.logger.Info("recovery plan updated", zap.String(logger.FieldPlanID, id))
	return s.toDTO(plan, nil), nil
}

func (s *disasterRecoveryService) DeleteRecoveryPlan(ctx context.Context, id string) error {
	unlock := s.locks.Lock(planLockKey(id))
	defer unlock()

	ok, err := s.plans.Delete(ctx, id)
	if err != nil {
		return errors.Wrap(err, "delete recovery plan")
	}
	if !ok {
		return code.ErrorRecoveryPlanNotFound
	}
	s.logger.Info("recovery plan deleted", zap.String(logger.FieldPlanID, id))
	return nil
}

// ExecuteRecovery 执行恢复计划，成功或失败都会写入执行历史
func (s *disasterRecoveryService) ExecuteRecovery(ctx context.Context, id string) (result *domain.RestoreResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "recovery.execute")
	defer span.Finish()
	defer observe("execute", time.Now(), &err)

	unlock := s.locks.Lock(planLockKey(id))
	defer unlock()

	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status != domain.PlanStatusActive {
		return nil, code.ErrorRecoveryPlanInactive
	}
	log := s.logger.With(zap.String(logger.FieldPlanID, plan.ID), zap.String(logger.FieldBackupID, plan.BackupID))

	result, err = s.restoreForPlan(ctx, plan)

	now := s.now()
	record := domain.ExecutionRecord{Timestamp: now, Status: domain.RunStatusCompleted, Result: result}
	if err != nil {
		record.Status = domain.RunStatusFailed
		record.Error = err.Error()
	}
	plan.ExecutionHistory = append(plan.ExecutionHistory, record)
	plan.LastExecuted = &now
	plan.UpdatedAt = now

	if uerr := s.plans.Update(ctx, plan); uerr != nil {
		log.Error("record recovery execution failed", zap.Error(uerr))
		if err == nil {
			err = errors.Wrap(uerr, "record recovery execution")
		}
	}

	if err != nil {
		log.Error("recovery execution failed", zap.Error(err))
		s.notify(ctx, plan, domain.NotificationFailure, err)
		return nil, err
	}

	log.Info("recovery executed", zap.Strings("collections", result.Collections))
	s.notify(ctx, plan, domain.NotificationSuccess, result)
	return result, nil
}

func (s *disasterRecoveryService) restoreForPlan(ctx context.Context, plan *domain.RecoveryPlan) (*domain.RestoreResult, error) {
	backup, err := s.backups.GetBackup(ctx, plan.BackupID)
	if err != nil {
		return nil, err
	}
	if backup == nil {
		return nil, code.ErrorBackupNotFound
	}
	validate, createIndexes := plan.Validation, true
	return s.backups.RestoreBackup(ctx, &dto.RestoreRequest{
		BackupID:      plan.BackupID,
		Collections:   plan.Collections,
		Mode:          string(plan.RestoreMode),
		ValidateData:  &validate,
		CreateIndexes: &createIndexes,
	})
}

// TestRecoveryPlan 演练恢复计划
//
// ValidateOnly 只确认备份存在；否则以 skip 模式执行真实恢复且不创建索引
func (s *disasterRecoveryService) TestRecoveryPlan(ctx context.Context, id string, opts domain.TestOptions) (record *domain.TestRecord, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "recovery.test")
	defer span.Finish()
	defer observe("test", time.Now(), &err)

	unlock := s.locks.Lock(planLockKey(id))
	defer unlock()

	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String(logger.FieldPlanID, plan.ID), zap.String(logger.FieldBackupID, plan.BackupID))

	record = &domain.TestRecord{
		TestMode:     opts.TestMode,
		ValidateOnly: opts.ValidateOnly,
		Status:       domain.RunStatusPassed,
		Details:      &domain.TestDetails{},
	}

	testErr := s.runTest(ctx, plan, opts, record.Details)
	if testErr != nil {
		record.Status = domain.RunStatusFailed
		record.Error = testErr.Error()
		log.Warn("recovery test failed", zap.Error(testErr))
	}

	now := s.now()
	record.Timestamp = now
	plan.TestResults = append(plan.TestResults, *record)
	plan.LastTested = &now
	plan.UpdatedAt = now

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, errors.Wrap(err, "record recovery test")
	}
	log.Info("recovery test finished", zap.String("status", string(record.Status)))

	if opts.NotifyResults {
		s.notify(ctx, plan, domain.NotificationTest, record)
	}
	return record, nil
}

func (s *disasterRecoveryService) runTest(ctx context.Context, plan *domain.RecoveryPlan, opts domain.TestOptions, details *domain.TestDetails) error {
	backup, err := s.backups.GetBackup(ctx, plan.BackupID)
	if err != nil {
		return err
	}
	if backup == nil {
		return code.ErrorBackupNotFound
	}
	details.BackupExists = true
	details.BackupSize = backup.Size
	details.Collections = backup.Collections

	if opts.ValidateOnly {
		return nil
	}

	createIndexes := false
	validate := plan.Validation
	restored, err := s.backups.RestoreBackup(ctx, &dto.RestoreRequest{
		BackupID:      plan.BackupID,
		Collections:   plan.Collections,
		Mode:          string(domain.RestoreModeSkip),
		ValidateData:  &validate,
		CreateIndexes: &createIndexes,
	})
	if err != nil {
		return err
	}
	details.Restore = restored
	return nil
}

func (s *disasterRecoveryService) GetRecoveryStats(ctx context.Context) (*dto.RecoveryStats, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	stats := &dto.RecoveryStats{TotalPlans: len(plans)}
	for _, p := range plans {
		if p.Status == domain.PlanStatusActive {
			stats.ActivePlans++
		} else {
			stats.InactivePlans++
		}
		if p.LastTested != nil {
			stats.TestedPlans++
		} else {
			stats.UntestedPlans++
		}
		if p.LastExecuted != nil && now.Sub(*p.LastExecuted) <= recentExecutionWindow {
			stats.RecentlyExecuted++
		}
	}
	return stats, nil
}

// SendRecoveryNotification 发送恢复计划通知
func (s *disasterRecoveryService) SendRecoveryNotification(ctx context.Context, plan *domain.RecoveryPlan, typ domain.NotificationType, result any) error {
	n := buildNotification(plan, typ, result, s.now())
	return dispatchNotification(ctx, s.sink, plan.Notifications, n, s.logger.With(zap.String(logger.FieldPlanID, plan.ID)))
}

// notify delivers a notification, delivery errors never change the operation outcome
func (s *disasterRecoveryService) notify(ctx context.Context, plan *domain.RecoveryPlan, typ domain.NotificationType, result any) {
	if err := s.SendRecoveryNotification(ctx, plan, typ, result); err != nil {
		s.logger.Warn("recovery notification failed",
			zap.String(logger.FieldPlanID, plan.ID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

func (s *disasterRecoveryService) ShouldRunScheduledTest(plan *domain.RecoveryPlan) bool {
	if plan.Schedule == nil || plan.LastTested == nil {
		return true
	}
	return util.DaysBetween(*plan.LastTested, s.now()) >= plan.Schedule.Frequency.ThresholdDays()
}

// RunScheduledTests 计划演练巡检
func (s *disasterRecoveryService) RunScheduledTests(ctx context.Context) (int, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return 0, err
	}
	ran := 0
	for _, p := range plans {
		if p.Status != domain.PlanStatusActive || p.Schedule == nil || !p.Schedule.Enabled {
			continue
		}
		if !s.ShouldRunScheduledTest(p) {
			continue
		}
		record, err := s.TestRecoveryPlan(ctx, p.ID, domain.TestOptions{TestMode: true, NotifyResults: true})
		if err != nil {
			s.logger.Warn("scheduled recovery test failed", zap.String(logger.FieldPlanID, p.ID), zap.Error(err))
			continue
		}
		ran++
		s.logger.Info("scheduled recovery test",
			zap.String(logger.FieldPlanID, p.ID),
			zap.String("status", string(record.Status)),
		)
	}
	return ran, nil
}

func (s *disasterRecoveryService) loadPlan(ctx context.Context, id string) (*domain.RecoveryPlan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, code.ErrorRecoveryPlanNotFound
	}
	return plan, nil
}

func (s *disasterRecoveryService) toDTO(plan *domain.RecoveryPlan, backup *dto.BackupDTO) *dto.RecoveryPlanDTO {
	out := &dto.RecoveryPlanDTO{}
	if err := copier.Copy(out, plan); err != nil {
		s.logger.Warn("copy recovery plan", zap.String(logger.FieldPlanID, plan.ID), zap.Error(err))
	}
	if out.ExecutionHistory == nil {
		out.ExecutionHistory = []domain.ExecutionRecord{}
	}
	if out.TestResults == nil {
		out.TestResults = []domain.TestRecord{}
	}
	out.NextScheduledRun = nextScheduledRun(plan.Schedule, s.now())
	out.BackupInfo = backup
	return out
}

// nextScheduledRun returns the next drill time of an enabled schedule
// nextScheduledRun 计算已启用演练计划的下次执行时间
func nextScheduledRun(schedule *domain.PlanSchedule, now time.Time) *time.Time {
	if schedule == nil || !schedule.Enabled {
		return nil
	}
	spec, err := scheduleSpec(schedule)
	if err != nil {
		return nil
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil
	}
	next := sched.Next(now)
	return &next
}

// scheduleSpec converts a plan schedule into a standard five field cron expression
func scheduleSpec(schedule *domain.PlanSchedule) (string, error) {
	hh, mm, ok := strings.Cut(schedule.Time, ":")
	if !ok {
		return "", fmt.Errorf("invalid schedule time %q", schedule.Time)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid schedule hour %q", hh)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid schedule minute %q", mm)
	}

	switch schedule.Frequency {
	case domain.FrequencyWeekly:
		return fmt.Sprintf("%d %d * * 0", minute, hour), nil
	case domain.FrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func toPlanNotifications(req *dto.PlanNotificationsRequest) *domain.PlanNotifications {
	if req == nil {
		return nil
	}
	return &domain.PlanNotifications{Email: req.Email, Webhook: req.Webhook}
}

func toPlanSchedule(req *dto.PlanScheduleRequest) *domain.PlanSchedule {
	if req == nil {
		return nil
	}
	return &domain.PlanSchedule{
		Enabled:   req.Enabled,
		Frequency: domain.ScheduleFrequency(req.Frequency),
		Time:      req.Time,
	}
}

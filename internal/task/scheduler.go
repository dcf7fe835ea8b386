package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/internal/service"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config 调度器配置
type Config struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	CleanupInterval time.Duration `yaml:"cleanup-interval" default:"1h"`
	DrillInterval   time.Duration `yaml:"drill-interval" default:"24h"`
}

type job struct {
	task      Task
	kind      JobKind
	entryID   cron.EntryID
	config    *dto.BackupConfigRequest
	createdAt time.Time
	lastRun   *time.Time
	lastErr   string
	runs      int64
}

// Scheduler owns the built-in cleanup and drill timers plus named backup jobs
// Scheduler 任务调度器，持有内置清理、演练定时器以及命名备份任务
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	jobs    map[string]*job

	backups       service.BackupService
	recovery      service.DisasterRecoveryService
	cleanupConfig *dto.BackupConfigRequest
	config        Config
	logger        *zap.Logger
}

// NewScheduler 创建任务调度器，cleanupConfig 为内置清理任务使用的备份配置
func NewScheduler(
	backups service.BackupService,
	recovery service.DisasterRecoveryService,
	cleanupConfig *dto.BackupConfigRequest,
	config Config,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		jobs:          make(map[string]*job),
		backups:       backups,
		recovery:      recovery,
		cleanupConfig: cleanupConfig,
		config:        config,
		logger:        logger,
	}
	s.cron = s.newCron()
	return s
}

func (s *Scheduler) newCron() *cron.Cron {
	l := cronLogger{logger: s.logger}
	return cron.New(cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)), cron.WithLogger(l))
}

// Start 启动调度器，已运行时不做任何事
// 立即执行一次清理，然后按间隔执行清理与演练巡检
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	cleanup := NewCleanupTask(s.backups, s.cleanupConfig, s.config.CleanupInterval, s.logger)
	s.addLocked(CleanupJobID, JobKindCleanup, cleanup, s.cleanupConfig)
	if s.recovery != nil {
		drill := NewDrillTask(s.recovery, s.config.DrillInterval, s.logger)
		s.addLocked(DrillJobID, JobKindDrill, drill, nil)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", zap.Int(logger.FieldCount, len(s.jobs)))

	if cleanup.IsStartupRun() {
		j := s.jobs[CleanupJobID]
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("task startupRun panic",
						zap.String("name", cleanup.Name()),
						zap.Any("panic", r),
						zap.Stack("stack"))
				}
			}()
			s.run(j)
		}()
	}
}

// Stop cancels every timer and clears all jobs; a running tick is left to finish
// Stop 取消所有定时器并清空任务，正在执行的任务不会被中断
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running && len(s.jobs) == 0 {
		return
	}
	s.cron.Stop()
	s.cron = s.newCron()
	s.jobs = make(map[string]*job)
	s.running = false
	s.logger.Info("scheduler stopped")
}

// MinJobInterval is the shortest interval cron.Every can honor
const MinJobInterval = time.Second

// ScheduleBackupJob registers a recurring backup job.
// It returns false when jobID is taken or interval is shorter than MinJobInterval.
// Fractional seconds are dropped so JobDetails reports the interval that actually fires.
// ScheduleBackupJob 注册定时备份任务，ID 已存在或间隔小于 1 秒时返回 false
func (s *Scheduler) ScheduleBackupJob(jobID string, config *dto.BackupConfigRequest, interval time.Duration) bool {
	if jobID == "" || jobID == CleanupJobID || jobID == DrillJobID || interval < MinJobInterval {
		return false
	}
	interval = interval.Truncate(time.Second)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; ok {
		s.logger.Warn("backup job already exists", zap.String(logger.FieldJobID, jobID))
		return false
	}
	t := NewBackupJobTask(jobID, config, interval, s.backups, s.logger)
	s.addLocked(jobID, JobKindBackup, t, config)
	s.logger.Info("backup job scheduled", zap.String(logger.FieldJobID, jobID), zap.Duration("interval", interval))
	return true
}

// CancelBackupJob 取消定时备份任务，返回任务是否存在
func (s *Scheduler) CancelBackupJob(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || j.kind != JobKindBackup {
		return false
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, jobID)
	s.logger.Info("backup job cancelled", zap.String(logger.FieldJobID, jobID))
	return true
}

// Status 调度器状态
func (s *Scheduler) Status() *dto.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &dto.SchedulerStatus{Running: s.running, Jobs: ids, JobCount: len(ids)}
}

// JobDetails 单个任务详情，任务不存在时返回 false
func (s *Scheduler) JobDetails(jobID string) (*dto.JobDetails, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	d := &dto.JobDetails{
		JobID:     jobID,
		Kind:      string(j.kind),
		Interval:  j.task.LoopInterval().String(),
		Config:    j.config,
		CreatedAt: j.createdAt,
		LastError: j.lastErr,
		Runs:      j.runs,
	}
	if j.lastRun != nil {
		last := *j.lastRun
		d.LastRun = &last
	}
	if s.running {
		if next := s.cron.Entry(j.entryID).Next; !next.IsZero() {
			d.NextRun = &next
		}
	}
	return d, true
}

func (s *Scheduler) addLocked(id string, kind JobKind, t Task, config *dto.BackupConfigRequest) {
	j := &job{task: t, kind: kind, config: config, createdAt: time.Now()}
	j.entryID = s.cron.Schedule(cron.Every(t.LoopInterval()), cron.FuncJob(func() { s.run(j) }))
	s.jobs[id] = j
}

func (s *Scheduler) run(j *job) {
	start := time.Now()
	s.logger.Info("task running", zap.String("name", j.task.Name()))
	err := j.task.Run(context.Background())

	s.mu.Lock()
	j.lastRun = &start
	j.runs++
	j.lastErr = ""
	if err != nil {
		j.lastErr = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("task running error",
			zap.String("name", j.task.Name()),
			zap.Duration(logger.FieldDuration, time.Since(start)),
			zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw("cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron "+msg, append(keysAndValues, "error", err)...)
}

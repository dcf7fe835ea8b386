package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*domain.RecoveryPlan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{plans: make(map[string]*domain.RecoveryPlan)}
}

func clonePlan(p *domain.RecoveryPlan) *domain.RecoveryPlan {
	cp := *p
	cp.ExecutionHistory = append([]domain.ExecutionRecord{}, p.ExecutionHistory...)
	cp.TestResults = append([]domain.TestRecord{}, p.TestResults...)
	return &cp
}

func (m *memPlanRepo) Create(_ context.Context, p *domain.RecoveryPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = clonePlan(p)
	return nil
}

func (m *memPlanRepo) GetByID(_ context.Context, id string) (*domain.RecoveryPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return clonePlan(p), nil
}

func (m *memPlanRepo) List(_ context.Context) ([]*domain.RecoveryPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.RecoveryPlan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, clonePlan(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPlanRepo) Update(_ context.Context, p *domain.RecoveryPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; !ok {
		return errors.New("record not found")
	}
	m.plans[p.ID] = clonePlan(p)
	return nil
}

func (m *memPlanRepo) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.plans[id]
	delete(m.plans, id)
	return ok, nil
}

type sentMessage struct {
	kind    string
	target  string
	subject string
	payload any
}

type recordSink struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (r *recordSink) SendEmail(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{kind: "email", target: to, subject: subject, payload: body})
	return r.err
}

func (r *recordSink) SendWebhook(_ context.Context, url string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{kind: "webhook", target: url, payload: payload})
	return r.err
}

type recoveryFixture struct {
	*backupFixture
	dr    *disasterRecoveryService
	plans *memPlanRepo
	sink  *recordSink
}

func newRecoveryFixture(t *testing.T) *recoveryFixture {
	t.Helper()
	bf := newBackupFixture(t)
	plans := newMemPlanRepo()
	sink := &recordSink{}
	dr := NewDisasterRecoveryService(plans, bf.svc, sink, bf.svc.locks, zap.NewNop()).(*disasterRecoveryService)
	return &recoveryFixture{backupFixture: bf, dr: dr, plans: plans, sink: sink}
}

func (f *recoveryFixture) backup(t *testing.T) string {
	t.Helper()
	seed(t, f.store, "animals", domain.Document{"_id": "a1", "name": "cow"}, domain.Document{"_id": "a2", "name": "pig"})
	res, err := f.svc.CreateBackup(context.Background(), nil)
	require.NoError(t, err)
	return res.BackupID
}

func (f *recoveryFixture) plan(t *testing.T, backupID, mode string) *dto.RecoveryPlanDTO {
	t.Helper()
	p, err := f.dr.CreateRecoveryPlan(context.Background(), &dto.RecoveryPlanRequest{
		Name:        "nightly restore",
		BackupID:    backupID,
		RestoreMode: mode,
		Notifications: &dto.PlanNotificationsRequest{
			Email:   []string{"ops@example.com"},
			Webhook: "https://hooks.example.com/dr",
		},
	})
	require.NoError(t, err)
	return p
}

func TestCreateRecoveryPlan(t *testing.T) {
	f := newRecoveryFixture(t)
	p := f.plan(t, "backup_0_missing", "merge")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.PlanStatusActive, p.Status)
	assert.Equal(t, domain.RestoreModeMerge, p.RestoreMode)
	assert.True(t, p.Validation)
	assert.Nil(t, p.LastTested)
	assert.Nil(t, p.LastExecuted)
	assert.Empty(t, p.ExecutionHistory)
	assert.Empty(t, p.TestResults)
	assert.Nil(t, p.NextScheduledRun)
}

func TestCreateRecoveryPlan_Invalid(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	tests := []struct {
		name string
		req  *dto.RecoveryPlanRequest
	}{
		{"missing name", &dto.RecoveryPlanRequest{BackupID: "b", RestoreMode: "replace"}},
		{"blank name", &dto.RecoveryPlanRequest{Name: "  ", BackupID: "b", RestoreMode: "replace"}},
		{"bad mode", &dto.RecoveryPlanRequest{Name: "p", BackupID: "b", RestoreMode: "overwrite"}},
		{"bad email", &dto.RecoveryPlanRequest{Name: "p", BackupID: "b", RestoreMode: "skip",
			Notifications: &dto.PlanNotificationsRequest{Email: []string{"not-an-address"}}}},
		{"bad webhook", &dto.RecoveryPlanRequest{Name: "p", BackupID: "b", RestoreMode: "skip",
			Notifications: &dto.PlanNotificationsRequest{Webhook: "::nope"}}},
		{"bad schedule time", &dto.RecoveryPlanRequest{Name: "p", BackupID: "b", RestoreMode: "skip",
			Schedule: &dto.PlanScheduleRequest{Enabled: true, Frequency: "daily", Time: "25:00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.dr.CreateRecoveryPlan(ctx, tt.req)
			assert.ErrorIs(t, err, code.ErrorInvalidParams)
		})
	}
}

func TestExecuteRecovery_BackupNotFound(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	p := f.plan(t, "backup_0_missing", "replace")

	_, err := f.dr.ExecuteRecovery(ctx, p.ID)
	require.ErrorIs(t, err, code.ErrorBackupNotFound)
	assert.Equal(t, "Backup not found", err.Error())

	stored, _ := f.plans.GetByID(ctx, p.ID)
	require.Len(t, stored.ExecutionHistory, 1)
	assert.Equal(t, domain.RunStatusFailed, stored.ExecutionHistory[0].Status)
	assert.Equal(t, "Backup not found", stored.ExecutionHistory[0].Error)
	assert.NotNil(t, stored.LastExecuted)

	// 失败通知发送到邮件与 webhook
	require.Len(t, f.sink.sent, 2)
	for _, m := range f.sink.sent {
		if m.kind == "webhook" {
			n := m.payload.(*domain.Notification)
			assert.Equal(t, domain.NotificationFailure, n.Type)
			assert.Equal(t, "Backup not found", n.Error)
		}
	}
}

func TestExecuteRecovery_Success(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	backupID := f.backup(t)
	p := f.plan(t, backupID, "replace")

	require.NoError(t, f.store.Drop(ctx, "animals"))

	res, err := f.dr.ExecuteRecovery(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"animals"}, res.Collections)

	docs, _ := f.store.Find(ctx, "animals")
	assert.Len(t, docs, 2)

	stored, _ := f.plans.GetByID(ctx, p.ID)
	require.Len(t, stored.ExecutionHistory, 1)
	assert.Equal(t, domain.RunStatusCompleted, stored.ExecutionHistory[0].Status)
	assert.Equal(t, backupID, stored.ExecutionHistory[0].Result.BackupID)
}

func TestExecuteRecovery_PlanErrors(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	_, err := f.dr.ExecuteRecovery(ctx, "nope")
	assert.ErrorIs(t, err, code.ErrorRecoveryPlanNotFound)

	p := f.plan(t, f.backup(t), "merge")
	inactive := string(domain.PlanStatusInactive)
	_, err = f.dr.UpdateRecoveryPlan(ctx, p.ID, &dto.RecoveryPlanUpdateRequest{Status: &inactive})
	require.NoError(t, err)

	_, err = f.dr.ExecuteRecovery(ctx, p.ID)
	assert.ErrorIs(t, err, code.ErrorRecoveryPlanInactive)

	stored, _ := f.plans.GetByID(ctx, p.ID)
	assert.Empty(t, stored.ExecutionHistory)
}

func TestTestRecoveryPlan_ValidateOnly(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	backupID := f.backup(t)
	p := f.plan(t, backupID, "replace")

	require.NoError(t, f.store.Drop(ctx, "animals"))
	seed(t, f.store, "animals", domain.Document{"_id": "z9", "name": "ox"})

	record, err := f.dr.TestRecoveryPlan(ctx, p.ID, domain.TestOptions{TestMode: true, ValidateOnly: true})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPassed, record.Status)
	require.NotNil(t, record.Details)
	assert.True(t, record.Details.BackupExists)
	assert.Greater(t, record.Details.BackupSize, int64(0))
	assert.Equal(t, []string{"animals"}, record.Details.Collections)
	assert.Nil(t, record.Details.Restore)

	// 仅校验时不修改任何集合
	docs, _ := f.store.Find(ctx, "animals")
	assert.Equal(t, []string{"z9"}, sortedIDs(docs))

	stored, _ := f.plans.GetByID(ctx, p.ID)
	assert.Len(t, stored.TestResults, 1)
	assert.NotNil(t, stored.LastTested)
	assert.Empty(t, f.sink.sent)
}

func TestTestRecoveryPlan_DryRunUsesSkip(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	backupID := f.backup(t)
	p := f.plan(t, backupID, "replace")

	require.NoError(t, f.store.Drop(ctx, "animals"))
	seed(t, f.store, "animals", domain.Document{"_id": "a1", "name": "bull"}, domain.Document{"_id": "z9", "name": "ox"})

	record, err := f.dr.TestRecoveryPlan(ctx, p.ID, domain.TestOptions{TestMode: true, NotifyResults: true})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPassed, record.Status)
	require.NotNil(t, record.Details.Restore)
	assert.Equal(t, domain.RestoreModeSkip, record.Details.Restore.Mode)

	docs, _ := f.store.Find(ctx, "animals")
	assert.Equal(t, []string{"a1", "a2", "z9"}, sortedIDs(docs))
	for _, d := range docs {
		if d["_id"] == "a1" {
			assert.Equal(t, "bull", d["name"])
		}
	}
	assert.Len(t, f.sink.sent, 2)
}

func TestTestRecoveryPlan_MissingBackupIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	p := f.plan(t, "backup_0_missing", "skip")

	record, err := f.dr.TestRecoveryPlan(ctx, p.ID, domain.TestOptions{ValidateOnly: true})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, record.Status)
	assert.False(t, record.Details.BackupExists)
	assert.Equal(t, "Backup not found", record.Error)

	_, err = f.dr.TestRecoveryPlan(ctx, "nope", domain.TestOptions{})
	assert.ErrorIs(t, err, code.ErrorRecoveryPlanNotFound)
}

func TestListRecoveryPlans(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	backupID := f.backup(t)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f.dr.now = func() time.Time { return base }
	older := f.plan(t, "backup_0_missing", "merge")
	f.dr.now = func() time.Time { return base.Add(time.Hour) }
	newer := f.plan(t, backupID, "replace")

	list, err := f.dr.ListRecoveryPlans(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	require.NotNil(t, list[0].BackupInfo)
	assert.Equal(t, backupID, list[0].BackupInfo.ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Nil(t, list[1].BackupInfo)
}

func TestUpdateAndDeleteRecoveryPlan(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	p := f.plan(t, "b1", "merge")

	later := p.UpdatedAt.Add(time.Minute)
	f.dr.now = func() time.Time { return later }
	name := "weekly drill"
	got, err := f.dr.UpdateRecoveryPlan(ctx, p.ID, &dto.RecoveryPlanUpdateRequest{
		Name:     &name,
		Schedule: &dto.PlanScheduleRequest{Enabled: true, Frequency: "weekly", Time: "02:30"},
	})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, domain.RestoreModeMerge, got.RestoreMode)
	assert.True(t, got.UpdatedAt.Equal(later))
	require.NotNil(t, got.NextScheduledRun)
	assert.Equal(t, time.Sunday, got.NextScheduledRun.Weekday())

	_, err = f.dr.UpdateRecoveryPlan(ctx, "nope", &dto.RecoveryPlanUpdateRequest{Name: &name})
	assert.ErrorIs(t, err, code.ErrorRecoveryPlanNotFound)

	require.NoError(t, f.dr.DeleteRecoveryPlan(ctx, p.ID))
	assert.ErrorIs(t, f.dr.DeleteRecoveryPlan(ctx, p.ID), code.ErrorRecoveryPlanNotFound)
}

func TestGetRecoveryStats(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -2)
	old := now.AddDate(0, 0, -20)

	for _, p := range []*domain.RecoveryPlan{
		{ID: "p1", Status: domain.PlanStatusActive, LastTested: &recent, LastExecuted: &recent},
		{ID: "p2", Status: domain.PlanStatusActive, LastExecuted: &old},
		{ID: "p3", Status: domain.PlanStatusInactive},
	} {
		require.NoError(t, f.plans.Create(ctx, p))
	}
	f.dr.now = func() time.Time { return now }

	stats, err := f.dr.GetRecoveryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &dto.RecoveryStats{
		TotalPlans:       3,
		ActivePlans:      2,
		InactivePlans:    1,
		TestedPlans:      1,
		UntestedPlans:    2,
		RecentlyExecuted: 1,
	}, stats)
}

func TestShouldRunScheduledTest(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	f := newRecoveryFixture(t)
	f.dr.now = func() time.Time { return now }

	ago := func(days int) *time.Time {
		v := now.AddDate(0, 0, -days)
		return &v
	}
	sched := func(freq domain.ScheduleFrequency) *domain.PlanSchedule {
		return &domain.PlanSchedule{Enabled: true, Frequency: freq, Time: "03:00"}
	}

	tests := []struct {
		name string
		plan *domain.RecoveryPlan
		want bool
	}{
		{"no schedule", &domain.RecoveryPlan{LastTested: ago(0)}, true},
		{"never tested", &domain.RecoveryPlan{Schedule: sched(domain.FrequencyMonthly)}, true},
		{"daily tested today", &domain.RecoveryPlan{Schedule: sched(domain.FrequencyDaily), LastTested: ago(0)}, false},
		{"daily tested yesterday", &domain.RecoveryPlan{Schedule: sched(domain.FrequencyDaily), LastTested: ago(1)}, true},
		{"weekly after 6 days", &domain.RecoveryPlan{Schedule: sched(domain.FrequencyWeekly), LastTested: ago(6)}, false},
		{"weekly after 7 days", &domain.RecoveryPlan{Schedule: sched(domain.FrequencyWeekly), LastTested: ago(7)}, true},
		{"monthly after 29 days", &domain.RecoveryPlan{Schedule: sched(domain.FrequencyMonthly), LastTested: ago(29)}, false},
		{"monthly after 30 days", &domain.RecoveryPlan{Schedule: sched(domain.FrequencyMonthly), LastTested: ago(30)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.dr.ShouldRunScheduledTest(tt.plan))
		})
	}
}

func TestRunScheduledTests(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	backupID := f.backup(t)

	due := f.plan(t, backupID, "merge")
	_, err := f.dr.UpdateRecoveryPlan(ctx, due.ID, &dto.RecoveryPlanUpdateRequest{
		Schedule: &dto.PlanScheduleRequest{Enabled: true, Frequency: "daily", Time: "01:00"},
	})
	require.NoError(t, err)
	f.plan(t, backupID, "merge") // 未启用计划

	ran, err := f.dr.RunScheduledTests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)

	stored, _ := f.plans.GetByID(ctx, due.ID)
	require.Len(t, stored.TestResults, 1)
	assert.True(t, stored.TestResults[0].TestMode)
	assert.False(t, stored.TestResults[0].ValidateOnly)

	// 刚演练过，不再触发
	ran, err = f.dr.RunScheduledTests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, ran)
}

func TestSendRecoveryNotification_ErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	f.sink.err = errors.New("smtp down")
	plan := &domain.RecoveryPlan{ID: "p1", Name: "p", Notifications: &domain.PlanNotifications{Email: []string{"a@example.com", "b@example.com"}}}

	err := f.dr.SendRecoveryNotification(ctx, plan, domain.NotificationSuccess, &domain.RestoreResult{BackupID: "b"})
	assert.Error(t, err)
	assert.Len(t, f.sink.sent, 2)

	assert.NoError(t, f.dr.SendRecoveryNotification(ctx, &domain.RecoveryPlan{ID: "p2"}, domain.NotificationTest, nil))
}

// 计划状态机：一次演练与一次执行后各自的历史长度为 1，无论执行成功与否
func TestProperty_PlanStateMachine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("one test and one execution are recorded", prop.ForAll(
		func(backupExists, validateOnly bool, mode string) bool {
			ctx := context.Background()
			f := newRecoveryFixture(t)
			backupID := "backup_0_missing"
			if backupExists {
				backupID = f.backup(t)
			}
			p := f.plan(t, backupID, mode)
			if p.LastTested != nil || p.LastExecuted != nil || p.Status != domain.PlanStatusActive {
				return false
			}

			if _, err := f.dr.TestRecoveryPlan(ctx, p.ID, domain.TestOptions{ValidateOnly: validateOnly}); err != nil {
				return false
			}
			afterTest, _ := f.plans.GetByID(ctx, p.ID)
			if afterTest.LastTested == nil || len(afterTest.TestResults) != 1 {
				return false
			}

			_, err := f.dr.ExecuteRecovery(ctx, p.ID)
			if backupExists != (err == nil) {
				return false
			}
			afterExec, _ := f.plans.GetByID(ctx, p.ID)
			return afterExec.LastExecuted != nil && len(afterExec.ExecutionHistory) == 1
		},
		gen.Bool(),
		gen.Bool(),
		gen.OneConstOf("replace", "merge", "skip"),
	))

	properties.TestingRun(t)
}

func TestNextScheduledRun(t *testing.T) {
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.Local) // Wednesday

	next := nextScheduledRun(&domain.PlanSchedule{Enabled: true, Frequency: domain.FrequencyDaily, Time: "09:15"}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 6, 13, 9, 15, 0, 0, time.Local), *next)

	next = nextScheduledRun(&domain.PlanSchedule{Enabled: true, Frequency: domain.FrequencyMonthly, Time: "00:00"}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local), *next)

	assert.Nil(t, nextScheduledRun(&domain.PlanSchedule{Enabled: false, Time: "09:15"}, now))
	assert.Nil(t, nextScheduledRun(&domain.PlanSchedule{Enabled: true, Time: "9"}, now))
}

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/docstore"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/storage"
	"github.com/haierkeys/fast-backup-service/pkg/storage/local_fs"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memCatalog 内存备份目录
type memCatalog struct {
	mu      sync.Mutex
	records map[string]*domain.BackupCatalog
}

func newMemCatalog() *memCatalog {
	return &memCatalog{records: make(map[string]*domain.BackupCatalog)}
}

func (m *memCatalog) Create(_ context.Context, r *domain.BackupCatalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; ok {
		return fmt.Errorf("duplicate %s", r.ID)
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *memCatalog) GetByID(_ context.Context, id string) (*domain.BackupCatalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memCatalog) List(_ context.Context, statuses ...domain.BackupStatus) ([]*domain.BackupCatalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.BackupCatalog{}
	for _, r := range m.records {
		if len(statuses) > 0 && !containsStatus(statuses, r.Status) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memCatalog) UpdateStatus(_ context.Context, id string, status domain.BackupStatus, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("missing %s", id)
	}
	r.Status = status
	r.Message = message
	return nil
}

func (m *memCatalog) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *memCatalog) CountByStatus(_ context.Context) (map[domain.BackupStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.BackupStatus]int64)
	for _, r := range m.records {
		out[r.Status]++
	}
	return out, nil
}

func containsStatus(list []domain.BackupStatus, s domain.BackupStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// failingStore 读取指定集合时返回错误
type failingStore struct {
	domain.DocumentStore
	collection string
}

func (f *failingStore) Find(ctx context.Context, collection string) ([]domain.Document, error) {
	if collection == f.collection {
		return nil, errors.New("connection reset")
	}
	return f.DocumentStore.Find(ctx, collection)
}

// stubbornStorage 删除总是失败
type stubbornStorage struct {
	storage.Storager
	deleteErr error
}

func (s *stubbornStorage) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Storager.Delete(ctx, key)
}

type backupFixture struct {
	svc     *backupService
	store   *docstore.MemoryStore
	catalog *memCatalog
	blobs   storage.Storager
}

func newBackupFixture(t *testing.T) *backupFixture {
	t.Helper()
	blobs, err := local_fs.NewClient(&local_fs.Config{SavePath: t.TempDir()})
	require.NoError(t, err)

	store := docstore.NewMemoryStore()
	catalog := newMemCatalog()
	svc := NewBackupService(store, catalog, blobs, NewKeyLock(), zap.NewNop()).(*backupService)
	return &backupFixture{svc: svc, store: store, catalog: catalog, blobs: blobs}
}

func seed(t *testing.T, store domain.DocumentStore, collection string, docs ...domain.Document) {
	t.Helper()
	require.NoError(t, store.InsertMany(context.Background(), collection, docs))
}

func ptr[T any](v T) *T { return &v }

func sortedIDs(docs []domain.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		id, _ := domain.DocumentID(d)
		ids = append(ids, fmt.Sprint(id))
	}
	sort.Strings(ids)
	return ids
}

func TestResolveBackupConfig(t *testing.T) {
	cfg, err := ResolveBackupConfig(nil)
	require.NoError(t, err)
	assert.True(t, cfg.IncludeIndexes)
	assert.True(t, cfg.Compression)
	assert.False(t, cfg.Encryption)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, domain.BackupScheduleDaily, cfg.Schedule)
	assert.Equal(t, 10, cfg.MaxBackups)

	cfg, err = ResolveBackupConfig(&dto.BackupConfigRequest{
		Collections:   []string{"animals"},
		Compression:   ptr(false),
		RetentionDays: ptr(7),
		MaxBackups:    ptr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"animals"}, cfg.Collections)
	assert.False(t, cfg.Compression)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 3, cfg.MaxBackups)

	_, err = ResolveBackupConfig(&dto.BackupConfigRequest{RetentionDays: ptr(0)})
	assert.ErrorIs(t, err, code.ErrorInvalidParams)

	_, err = ResolveBackupConfig(&dto.BackupConfigRequest{Schedule: ptr("yearly")})
	assert.ErrorIs(t, err, code.ErrorInvalidParams)
}

func TestCreateBackup(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1", "name": "cow"}, domain.Document{"_id": "a2", "name": "pig"})
	seed(t, f.store, "staff", domain.Document{"_id": "s1", "name": "ann"})
	require.NoError(t, f.store.CreateIndex(ctx, "animals", domain.IndexDescriptor{
		Name: "name_1", Keys: []domain.IndexKey{{Field: "name", Value: 1}}, Unique: true,
	}))

	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)
	assert.Regexp(t, `^backup_\d+_[a-z0-9]{8}$`, res.BackupID)
	assert.Equal(t, []string{"animals", "staff"}, res.Collections)
	assert.Equal(t, domain.ArtifactFormatVersion, res.Metadata.Version)
	assert.Equal(t, 2, res.Metadata.CollectionCount)
	assert.Greater(t, res.Size, int64(0))

	record, err := f.catalog.GetByID(ctx, res.BackupID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.BackupStatusCompleted, record.Status)
	assert.Equal(t, artifactKey(res.BackupID, true), record.StorageKey)
	assert.Equal(t, res.Size, record.Size)

	data, err := f.blobs.Read(ctx, record.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, record.Checksum, checksum(data))

	artifact, err := decodeArtifact(data)
	require.NoError(t, err)
	require.NoError(t, validateArtifact(artifact))
	assert.Equal(t, 2, artifact.Collections["animals"].Count)
	assert.Len(t, artifact.Collections["animals"].Indexes, 2)
}

func TestCreateBackup_NoCollections(t *testing.T) {
	f := newBackupFixture(t)
	_, err := f.svc.CreateBackup(context.Background(), nil)
	assert.ErrorIs(t, err, code.ErrorBackupCollectionEmpty)

	records, _ := f.catalog.List(context.Background())
	assert.Empty(t, records)
}

func TestCreateBackup_ReadFailureRecordsFailedRow(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})
	f.svc.store = &failingStore{DocumentStore: f.store, collection: "animals"}

	_, err := f.svc.CreateBackup(ctx, &dto.BackupConfigRequest{Collections: []string{"animals"}})
	require.Error(t, err)

	failed, err := f.catalog.List(ctx, domain.BackupStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Message, "connection reset")

	list, err := f.svc.ListBackups(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	stats, err := f.svc.GetBackupStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FailedBackups)
	assert.Equal(t, 0, stats.TotalBackups)
}

func TestListBackups_NewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		f.svc.now = func() time.Time { return at }
		res, err := f.svc.CreateBackup(ctx, nil)
		require.NoError(t, err)
		ids = append(ids, res.BackupID)
	}

	list, err := f.svc.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	got, err := f.svc.GetBackup(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, ids[1], got.ID)

	missing, err := f.svc.GetBackup(ctx, "backup_0_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInspectBackup(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"}, domain.Document{"_id": "a2"})

	res, err := f.svc.CreateBackup(ctx, &dto.BackupConfigRequest{Compression: ptr(false)})
	require.NoError(t, err)

	info, err := f.svc.InspectBackup(ctx, res.BackupID)
	require.NoError(t, err)
	assert.Equal(t, res.BackupID, info.ID)
	assert.NotEmpty(t, info.Checksum)
	require.Len(t, info.CollectionsInfo, 1)
	assert.Equal(t, "animals", info.CollectionsInfo[0].Name)
	assert.Equal(t, 2, info.CollectionsInfo[0].Count)
	assert.Equal(t, []string{"_id_"}, info.CollectionsInfo[0].Indexes)
}

func TestRestoreBackup_SkipKeepsIDTypesDistinct(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals",
		domain.Document{"_id": "1", "name": "string-one"},
		domain.Document{"_id": 2, "name": "from-backup"},
	)
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, f.store.Drop(ctx, "animals"))
	seed(t, f.store, "animals",
		domain.Document{"_id": 1, "name": "int-one"},
		domain.Document{"_id": 2, "name": "current"},
	)

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID, Mode: "skip"})
	require.NoError(t, err)

	docs, err := f.store.Find(ctx, "animals")
	require.NoError(t, err)
	byKey := make(map[string]any, len(docs))
	for _, d := range docs {
		byKey[domain.IDKey(d["_id"])] = d["name"]
	}
	assert.Len(t, docs, 3)
	assert.Equal(t, "int-one", byKey[domain.IDKey(1)])
	assert.Equal(t, "string-one", byKey[domain.IDKey("1")])
	assert.Equal(t, "current", byKey[domain.IDKey(2)])
}

func TestRestoreBackup_Modes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mode    string
		wantIDs []string
		wantVal map[string]string
	}{
		{
			name:    "replace drops extra documents",
			mode:    "replace",
			wantIDs: []string{"a1", "a2"},
			wantVal: map[string]string{"a1": "cow", "a2": "pig"},
		},
		{
			name:    "default mode is replace",
			mode:    "",
			wantIDs: []string{"a1", "a2"},
			wantVal: map[string]string{"a1": "cow", "a2": "pig"},
		},
		{
			name:    "merge overwrites by id and keeps others",
			mode:    "merge",
			wantIDs: []string{"a1", "a2", "a3"},
			wantVal: map[string]string{"a1": "cow", "a2": "pig", "a3": "hen"},
		},
		{
			name:    "skip keeps current documents",
			mode:    "skip",
			wantIDs: []string{"a1", "a2", "a3"},
			wantVal: map[string]string{"a1": "bull", "a2": "pig", "a3": "hen"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBackupFixture(t)
			seed(t, f.store, "animals", domain.Document{"_id": "a1", "name": "cow"}, domain.Document{"_id": "a2", "name": "pig"})
			res, err := f.svc.CreateBackup(ctx, nil)
			require.NoError(t, err)

			require.NoError(t, f.store.Drop(ctx, "animals"))
			seed(t, f.store, "animals", domain.Document{"_id": "a1", "name": "bull"}, domain.Document{"_id": "a3", "name": "hen"})

			out, err := f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID, Mode: tt.mode})
			require.NoError(t, err)
			assert.Equal(t, []string{"animals"}, out.Collections)

			docs, err := f.store.Find(ctx, "animals")
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, sortedIDs(docs))
			for _, d := range docs {
				assert.Equal(t, tt.wantVal[d["_id"].(string)], d["name"])
			}
		})
	}
}

func TestRestoreBackup_SkipCountsOnlyInserted(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"}, domain.Document{"_id": "a2"})
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, f.store.Drop(ctx, "animals"))
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})

	out, err := f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID, Mode: "skip"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Inserted["animals"])
}

func TestRestoreBackup_RecreatesIndexes(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1", "name": "cow"})
	require.NoError(t, f.store.CreateIndex(ctx, "animals", domain.IndexDescriptor{
		Name: "name_1", Keys: []domain.IndexKey{{Field: "name", Value: 1}},
	}))
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, f.store.Drop(ctx, "animals"))
	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID, CreateIndexes: ptr(false)})
	require.NoError(t, err)
	indexes, _ := f.store.ListIndexes(ctx, "animals")
	assert.Len(t, indexes, 1)

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID})
	require.NoError(t, err)
	indexes, _ = f.store.ListIndexes(ctx, "animals")
	assert.Len(t, indexes, 2)
}

func TestRestoreBackup_Errors(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: "backup_0_missing"})
	assert.ErrorIs(t, err, code.ErrorBackupNotFound)

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID, Mode: "overwrite"})
	assert.ErrorIs(t, err, code.ErrorRestoreModeInvalid)

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{})
	assert.ErrorIs(t, err, code.ErrorInvalidParams)

	// 篡改制品内容
	record, _ := f.catalog.GetByID(ctx, res.BackupID)
	require.NoError(t, f.blobs.Write(ctx, record.StorageKey, []byte(`{"id":"x"}`)))

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID})
	assert.ErrorIs(t, err, code.ErrorBackupChecksum)

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID, ValidateData: ptr(false)})
	assert.NoError(t, err)
}

func TestRestoreBackup_MissingArtifact(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	record, _ := f.catalog.GetByID(ctx, res.BackupID)
	require.NoError(t, f.blobs.Delete(ctx, record.StorageKey))

	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID})
	assert.ErrorIs(t, err, code.ErrorBackupNotFound)
}

func TestRestoreBackup_UnknownCollectionSkipped(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	out, err := f.svc.RestoreBackup(ctx, &dto.RestoreRequest{
		BackupID:    res.BackupID,
		Collections: []string{"animals", "ghosts"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"animals"}, out.Collections)
}

func TestDeleteBackup(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)
	record, _ := f.catalog.GetByID(ctx, res.BackupID)

	require.NoError(t, f.svc.DeleteBackup(ctx, res.BackupID))

	gone, _ := f.catalog.GetByID(ctx, res.BackupID)
	assert.Nil(t, gone)
	_, err = f.blobs.Read(ctx, record.StorageKey)
	assert.ErrorIs(t, err, code.ErrorStorageKeyNotFound)

	err = f.svc.DeleteBackup(ctx, res.BackupID)
	assert.ErrorIs(t, err, code.ErrorBackupNotFound)
}

func TestDeleteBackup_InterruptedIsRecovered(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})
	res, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	f.svc.blobs = &stubbornStorage{Storager: f.blobs, deleteErr: errors.New("disk busy")}
	require.Error(t, f.svc.DeleteBackup(ctx, res.BackupID))

	record, _ := f.catalog.GetByID(ctx, res.BackupID)
	require.NotNil(t, record)
	assert.Equal(t, domain.BackupStatusDeleting, record.Status)

	// 标记为删除中的备份不再出现在列表中，也不能恢复
	list, _ := f.svc.ListBackups(ctx)
	assert.Empty(t, list)
	_, err = f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID})
	assert.ErrorIs(t, err, code.ErrorBackupNotFound)

	f.svc.blobs = f.blobs
	n, err := f.svc.RecoverPendingDeletions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, _ := f.catalog.GetByID(ctx, res.BackupID)
	assert.Nil(t, gone)
}

func TestCleanupOldBackups(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	seed(t, f.store, "animals", domain.Document{"_id": "a1"})

	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	ages := []int{40, 20, 3, 2, 1}
	for _, days := range ages {
		at := now.AddDate(0, 0, -days)
		f.svc.now = func() time.Time { return at }
		_, err := f.svc.CreateBackup(ctx, nil)
		require.NoError(t, err)
	}
	f.svc.now = func() time.Time { return now }

	res, err := f.svc.CleanupOldBackups(ctx, &dto.BackupConfigRequest{RetentionDays: ptr(30), MaxBackups: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 3, res.Remaining)
	assert.Empty(t, res.Failed)

	list, _ := f.svc.ListBackups(ctx)
	require.Len(t, list, 3)
	for _, b := range list {
		assert.True(t, b.Timestamp.After(now.AddDate(0, 0, -4)))
	}
}

func TestCleanupOldBackups_PrunesExpiredFailures(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	for id, age := range map[string]int{"backup_old_failed": 45, "backup_new_failed": 2} {
		require.NoError(t, f.catalog.Create(ctx, &domain.BackupCatalog{
			ID:        id,
			Timestamp: now.AddDate(0, 0, -age),
			Status:    domain.BackupStatusFailed,
			Message:   "disk full",
		}))
	}

	res, err := f.svc.CleanupOldBackups(ctx, &dto.BackupConfigRequest{RetentionDays: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.PrunedFailed)
	assert.Equal(t, 0, res.Deleted)

	old, _ := f.catalog.GetByID(ctx, "backup_old_failed")
	assert.Nil(t, old)
	recent, _ := f.catalog.GetByID(ctx, "backup_new_failed")
	require.NotNil(t, recent)
	assert.Equal(t, domain.BackupStatusFailed, recent.Status)
}

func TestGetBackupStats(t *testing.T) {
	ctx := context.Background()
	f := newBackupFixture(t)

	stats, err := f.svc.GetBackupStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalBackups)
	assert.Nil(t, stats.OldestBackup)
	assert.NotNil(t, stats.Storage)

	seed(t, f.store, "animals", domain.Document{"_id": "a1"})
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)
	f.svc.now = func() time.Time { return first }
	a, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)
	f.svc.now = func() time.Time { return second }
	b, err := f.svc.CreateBackup(ctx, nil)
	require.NoError(t, err)

	stats, err = f.svc.GetBackupStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBackups)
	assert.Equal(t, a.Size+b.Size, stats.TotalSize)
	assert.Equal(t, (a.Size+b.Size)/2, stats.AverageSize)
	assert.True(t, stats.OldestBackup.Equal(first))
	assert.True(t, stats.NewestBackup.Equal(second))
	assert.Equal(t, int64(2), stats.SuccessfulBackups)
}

func TestSelectExpired(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	backups := []*domain.BackupCatalog{
		{ID: "b5", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "b4", Timestamp: now.AddDate(0, 0, -2)},
		{ID: "b3", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "b2", Timestamp: now.AddDate(0, 0, -31)},
		{ID: "b1", Timestamp: now.AddDate(0, 0, -60)},
	}

	assert.Equal(t, []string{"b2", "b1"}, selectExpired(backups, now, 30, 10))
	assert.Equal(t, []string{"b4", "b3", "b2", "b1"}, selectExpired(backups, now, 30, 1))
	assert.Empty(t, selectExpired(backups, now, 365, 5))
}

// 保留策略：清理后剩余数量不超过 maxBackups，且剩余备份都在保留期内
func TestProperty_RetentionBound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	properties.Property("kept backups respect both limits", prop.ForAll(
		func(ages []int, retentionDays, maxBackups int) bool {
			sort.Ints(ages)
			backups := make([]*domain.BackupCatalog, len(ages))
			for i, age := range ages {
				backups[i] = &domain.BackupCatalog{ID: fmt.Sprintf("b%d", i), Timestamp: now.Add(-time.Duration(age) * time.Hour)}
			}

			expired := map[string]bool{}
			for _, id := range selectExpired(backups, now, retentionDays, maxBackups) {
				expired[id] = true
			}

			kept := 0
			cutoff := now.AddDate(0, 0, -retentionDays)
			for _, b := range backups {
				if expired[b.ID] {
					continue
				}
				kept++
				if b.Timestamp.Before(cutoff) {
					return false
				}
			}
			return kept <= maxBackups
		},
		gen.SliceOf(gen.IntRange(0, 24*400)),
		gen.IntRange(1, 365),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}

func genDocuments() gopter.Gen {
	return gen.SliceOf(gen.AlphaString()).Map(func(values []string) []domain.Document {
		docs := make([]domain.Document, len(values))
		for i, v := range values {
			docs[i] = domain.Document{"_id": fmt.Sprintf("d%03d", i), "value": v}
		}
		return docs
	})
}

func documentsByID(docs []domain.Document) map[string]any {
	out := make(map[string]any, len(docs))
	for _, d := range docs {
		out[d["_id"].(string)] = d["value"]
	}
	return out
}

// 备份后以 replace 模式恢复，集合内容与备份时一致
func TestProperty_BackupRestoreRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("replace restore reproduces snapshot", prop.ForAll(
		func(docs []domain.Document, compress bool) bool {
			ctx := context.Background()
			f := newBackupFixture(t)
			seedErr := f.store.CreateCollection(ctx, "things")
			if len(docs) > 0 {
				seedErr = f.store.InsertMany(ctx, "things", docs)
			}
			if seedErr != nil {
				return false
			}
			res, err := f.svc.CreateBackup(ctx, &dto.BackupConfigRequest{Compression: ptr(compress)})
			if err != nil {
				return false
			}

			_ = f.store.Drop(ctx, "things")
			_ = f.store.InsertMany(ctx, "things", []domain.Document{{"_id": "zzz", "value": "noise"}})

			if _, err := f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID}); err != nil {
				return false
			}
			got, _ := f.store.Find(ctx, "things")
			return assert.ObjectsAreEqual(documentsByID(docs), documentsByID(got))
		},
		genDocuments(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// merge 模式恢复两次与恢复一次结果相同
func TestProperty_MergeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("second merge changes nothing", prop.ForAll(
		func(docs []domain.Document) bool {
			ctx := context.Background()
			f := newBackupFixture(t)
			seedDocs := append([]domain.Document{{"_id": "seed", "value": "x"}}, docs...)
			if f.store.InsertMany(ctx, "things", seedDocs) != nil {
				return false
			}
			res, err := f.svc.CreateBackup(ctx, nil)
			if err != nil {
				return false
			}
			_ = f.store.InsertMany(ctx, "things", []domain.Document{{"_id": "extra", "value": "y"}})

			req := &dto.RestoreRequest{BackupID: res.BackupID, Mode: "merge"}
			if _, err := f.svc.RestoreBackup(ctx, req); err != nil {
				return false
			}
			once, _ := f.store.Find(ctx, "things")
			if _, err := f.svc.RestoreBackup(ctx, req); err != nil {
				return false
			}
			twice, _ := f.store.Find(ctx, "things")
			return assert.ObjectsAreEqual(documentsByID(once), documentsByID(twice))
		},
		genDocuments(),
	))

	properties.TestingRun(t)
}

// skip 模式不修改目标中已存在的文档
func TestProperty_SkipNonDestructive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("existing documents are untouched", prop.ForAll(
		func(docs []domain.Document, mutated string) bool {
			ctx := context.Background()
			f := newBackupFixture(t)
			seedDocs := append([]domain.Document{{"_id": "seed", "value": "x"}}, docs...)
			if f.store.InsertMany(ctx, "things", seedDocs) != nil {
				return false
			}
			res, err := f.svc.CreateBackup(ctx, nil)
			if err != nil {
				return false
			}

			// 修改当前数据后再以 skip 模式恢复
			_ = f.store.ReplaceOrInsert(ctx, "things", "seed", domain.Document{"_id": "seed", "value": mutated})
			before, _ := f.store.Find(ctx, "things")

			if _, err := f.svc.RestoreBackup(ctx, &dto.RestoreRequest{BackupID: res.BackupID, Mode: "skip"}); err != nil {
				return false
			}
			after := documentsByID(mustFind(f.store, "things"))
			for id, v := range documentsByID(before) {
				if after[id] != v {
					return false
				}
			}
			return len(after) == len(seedDocs)
		},
		genDocuments(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func mustFind(store domain.DocumentStore, collection string) []domain.Document {
	docs, _ := store.Find(context.Background(), collection)
	return docs
}

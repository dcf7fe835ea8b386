package service

import (
	"context"
	"sort"
	"time"

	"github.com/creasty/defaults"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"github.com/haierkeys/fast-backup-service/pkg/storage"
	"github.com/haierkeys/fast-backup-service/pkg/validator"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// BackupService defines the business service interface for backups
// BackupService 定义备份业务服务接口
type BackupService interface {
	CreateBackup(ctx context.Context, req *dto.BackupConfigRequest) (*dto.BackupCreateResult, error)
	// ListBackups returns completed backups from the catalog, newest first
	ListBackups(ctx context.Context) ([]*dto.BackupDTO, error)
	// GetBackup returns a completed backup or nil when it does not exist
	GetBackup(ctx context.Context, id string) (*dto.BackupDTO, error)
	InspectBackup(ctx context.Context, id string) (*dto.BackupInspectDTO, error)
	RestoreBackup(ctx context.Context, req *dto.RestoreRequest) (*domain.RestoreResult, error)
	DeleteBackup(ctx context.Context, id string) error
	CleanupOldBackups(ctx context.Context, req *dto.BackupConfigRequest) (*dto.CleanupResult, error)
	GetBackupStats(ctx context.Context) (*dto.BackupStats, error)
	// RecoverPendingDeletions finishes deletes interrupted after the catalog was marked
	RecoverPendingDeletions(ctx context.Context) (int, error)
}

type backupService struct {
	store   domain.DocumentStore
	catalog domain.BackupCatalogRepository
	blobs   storage.Storager
	locks   *KeyLock
	logger  *zap.Logger
	now     func() time.Time
}

var _ BackupService = (*backupService)(nil)

// NewBackupService creates BackupService instance
// 创建 BackupService 实例
func NewBackupService(
	store domain.DocumentStore,
	catalog domain.BackupCatalogRepository,
	blobs storage.Storager,
	locks *KeyLock,
	logger *zap.Logger,
) BackupService {
	if locks == nil {
		locks = NewKeyLock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &backupService{
		store:   store,
		catalog: catalog,
		blobs:   blobs,
		locks:   locks,
		logger:  logger,
		now:     time.Now,
	}
}

// ResolveBackupConfig merges req onto the default backup config and validates the result
// ResolveBackupConfig 把请求合并到默认备份配置上并校验
func ResolveBackupConfig(req *dto.BackupConfigRequest) (domain.BackupConfig, error) {
	var cfg domain.BackupConfig
	if err := defaults.Set(&cfg); err != nil {
		return cfg, errors.Wrap(err, "backup config defaults")
	}
	if req != nil {
		if len(req.Collections) > 0 {
			cfg.Collections = append([]string{}, req.Collections...)
		}
		if req.IncludeIndexes != nil {
			cfg.IncludeIndexes = *req.IncludeIndexes
		}
		if req.Compression != nil {
			cfg.Compression = *req.Compression
		}
		if req.Encryption != nil {
			cfg.Encryption = *req.Encryption
		}
		if req.RetentionDays != nil {
			cfg.RetentionDays = *req.RetentionDays
		}
		if req.Schedule != nil {
			cfg.Schedule = domain.BackupSchedule(*req.Schedule)
		}
		if req.MaxBackups != nil {
			cfg.MaxBackups = *req.MaxBackups
		}
	}
	if err := validator.Struct(&cfg); err != nil {
		return cfg, code.ErrorInvalidParams.WithDetails(validator.Messages(err)...)
	}
	return cfg, nil
}

// CreateBackup snapshots the configured collections into a new artifact
// CreateBackup 把配置的集合快照为新的备份制品
func (s *backupService) CreateBackup(ctx context.Context, req *dto.BackupConfigRequest) (result *dto.BackupCreateResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "backup.create")
	defer span.Finish()
	defer observe("create", time.Now(), &err)

	cfg, err := ResolveBackupConfig(req)
	if err != nil {
		return nil, err
	}

	names := cfg.Collections
	if len(names) == 0 {
		names, err = s.store.ListCollections(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list collections")
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		return nil, code.ErrorBackupCollectionEmpty
	}

	now := s.now()
	id := newBackupID(now)
	unlock := s.locks.Lock(backupLockKey(id))
	defer unlock()

	log := s.logger.With(zap.String(logger.FieldBackupID, id))

	artifact, err := s.snapshot(ctx, id, now, cfg, names)
	if err != nil {
		s.recordFailure(ctx, id, now, cfg, names, err)
		return nil, err
	}

	data, err := encodeArtifact(artifact, cfg.Compression)
	if err != nil {
		s.recordFailure(ctx, id, now, cfg, names, err)
		return nil, err
	}

	key := artifactKey(id, cfg.Compression)
	if err := s.blobs.Write(ctx, key, data); err != nil {
		err = errors.Wrap(err, "write artifact")
		s.recordFailure(ctx, id, now, cfg, names, err)
		return nil, err
	}

	record := &domain.BackupCatalog{
		ID:          id,
		Timestamp:   now,
		Config:      cfg,
		Metadata:    artifact.Metadata,
		Collections: names,
		StorageKey:  key,
		Size:        int64(len(data)),
		Checksum:    checksum(data),
		Status:      domain.BackupStatusCompleted,
	}
	if err := s.catalog.Create(ctx, record); err != nil {
		// 目录写入失败时删除已写入的制品，避免产生无记录的孤立文件
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			log.Warn("remove orphan artifact failed", zap.String(logger.FieldFileKey, key), zap.Error(delErr))
		}
		return nil, errors.Wrap(err, "write catalog record")
	}

	lastBackupBytes.Set(float64(record.Size))
	log.Info("backup created",
		zap.Int64(logger.FieldSize, record.Size),
		zap.Int(logger.FieldCount, len(names)),
	)

	return &dto.BackupCreateResult{
		BackupID:    id,
		Size:        record.Size,
		Collections: names,
		Metadata:    artifact.Metadata,
	}, nil
}

// snapshot reads every collection, any read failure aborts the whole backup
func (s *backupService) snapshot(ctx context.Context, id string, now time.Time, cfg domain.BackupConfig, names []string) (*domain.BackupArtifact, error) {
	artifact := &domain.BackupArtifact{
		ID:          id,
		Timestamp:   now,
		Config:      cfg,
		Collections: make(map[string]*domain.CollectionSnapshot, len(names)),
	}

	var totalSize int64
	for _, name := range names {
		docs, err := s.store.Find(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "read collection %s", name)
		}
		snap := &domain.CollectionSnapshot{
			Documents: docs,
			Indexes:   []domain.IndexDescriptor{},
			Count:     len(docs),
		}
		if cfg.IncludeIndexes {
			indexes, err := s.store.ListIndexes(ctx, name)
			if err != nil {
				return nil, errors.Wrapf(err, "read indexes of %s", name)
			}
			snap.Indexes = indexes
		}
		if snap.Size, err = documentsSize(docs); err != nil {
			return nil, err
		}
		totalSize += snap.Size
		artifact.Collections[name] = snap
	}

	artifact.Metadata = domain.ArtifactMetadata{
		Version:         domain.ArtifactFormatVersion,
		TotalSize:       totalSize,
		CollectionCount: len(artifact.Collections),
	}
	return artifact, nil
}

// recordFailure keeps a failed catalog row so stats can report failed backups
func (s *backupService) recordFailure(ctx context.Context, id string, now time.Time, cfg domain.BackupConfig, names []string, cause error) {
	s.logger.Error("backup failed", zap.String(logger.FieldBackupID, id), zap.Error(cause))
	err := s.catalog.Create(ctx, &domain.BackupCatalog{
		ID:          id,
		Timestamp:   now,
		Config:      cfg,
		Collections: names,
		Status:      domain.BackupStatusFailed,
		Message:     cause.Error(),
	})
	if err != nil {
		s.logger.Warn("record failed backup", zap.String(logger.FieldBackupID, id), zap.Error(err))
	}
}

func (s *backupService) ListBackups(ctx context.Context) ([]*dto.BackupDTO, error) {
	records, err := s.catalog.List(ctx, domain.BackupStatusCompleted)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.BackupDTO, 0, len(records))
	for _, r := range records {
		out = append(out, catalogToDTO(r))
	}
	return out, nil
}

func (s *backupService) GetBackup(ctx context.Context, id string) (*dto.BackupDTO, error) {
	r, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || r.Status != domain.BackupStatusCompleted {
		return nil, nil
	}
	return catalogToDTO(r), nil
}

// InspectBackup reads one artifact body and summarizes its collections
// InspectBackup 读取单个备份制品并汇总集合信息
func (s *backupService) InspectBackup(ctx context.Context, id string) (*dto.BackupInspectDTO, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "backup.inspect")
	defer span.Finish()

	unlock := s.locks.Lock(backupLockKey(id))
	defer unlock()

	record, artifact, err := s.loadArtifact(ctx, id, true)
	if err != nil {
		return nil, err
	}

	out := &dto.BackupInspectDTO{
		BackupDTO: *catalogToDTO(record),
		Checksum:  record.Checksum,
	}
	names := artifact.CollectionNames()
	sort.Strings(names)
	for _, name := range names {
		c := artifact.Collections[name]
		info := &dto.CollectionInspectDTO{Name: name, Count: c.Count, Size: c.Size, Indexes: []string{}}
		for _, idx := range c.Indexes {
			info.Indexes = append(info.Indexes, idx.Name)
		}
		out.CollectionsInfo = append(out.CollectionsInfo, info)
	}
	return out, nil
}

// loadArtifact reads and decodes the artifact of a completed backup.
// With validate set the checksum and structure are verified before use.
func (s *backupService) loadArtifact(ctx context.Context, id string, validate bool) (*domain.BackupCatalog, *domain.BackupArtifact, error) {
	record, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if record == nil || record.Status != domain.BackupStatusCompleted {
		return nil, nil, code.ErrorBackupNotFound
	}

	data, err := s.blobs.Read(ctx, record.StorageKey)
	if err != nil {
		if errors.Is(err, code.ErrorStorageKeyNotFound) {
			return nil, nil, code.ErrorBackupNotFound.WithDetails("artifact " + record.StorageKey + " is missing")
		}
		return nil, nil, errors.Wrap(err, "read artifact")
	}

	if validate && record.Checksum != "" && checksum(data) != record.Checksum {
		return nil, nil, code.ErrorBackupChecksum
	}

	artifact, err := decodeArtifact(data)
	if err != nil {
		return nil, nil, err
	}
	if validate {
		if err := validateArtifact(artifact); err != nil {
			return nil, nil, err
		}
	}
	return record, artifact, nil
}

// RestoreBackup writes the artifact's collections back into the document store.
// Collections are restored one at a time, a failure leaves earlier collections restored.
// RestoreBackup 把备份制品中的集合写回文档存储，集合逐个恢复，失败时不回滚
func (s *backupService) RestoreBackup(ctx context.Context, req *dto.RestoreRequest) (result *domain.RestoreResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "backup.restore")
	defer span.Finish()
	defer observe("restore", time.Now(), &err)

	opts, err := resolveRestoreOptions(req)
	if err != nil {
		return nil, err
	}
	span.SetTag("backup.id", opts.BackupID)
	span.SetTag("restore.mode", string(opts.Mode))

	unlock := s.locks.Lock(backupLockKey(opts.BackupID))
	defer unlock()

	_, artifact, err := s.loadArtifact(ctx, opts.BackupID, opts.ValidateData)
	if err != nil {
		return nil, err
	}

	names := opts.Collections
	if len(names) == 0 {
		names = artifact.CollectionNames()
		sort.Strings(names)
	}

	log := s.logger.With(zap.String(logger.FieldBackupID, opts.BackupID), zap.String(logger.FieldMode, string(opts.Mode)))
	result = &domain.RestoreResult{
		BackupID:    opts.BackupID,
		Collections: make([]string, 0, len(names)),
		Mode:        opts.Mode,
		Inserted:    make(map[string]int, len(names)),
	}

	for _, name := range names {
		snap, ok := artifact.Collections[name]
		if !ok || snap == nil {
			log.Warn("collection not in backup, skipped", zap.String(logger.FieldCollection, name))
			continue
		}
		written, err := s.restoreCollection(ctx, name, snap, opts)
		if err != nil {
			log.Error("restore collection failed", zap.String(logger.FieldCollection, name), zap.Error(err))
			return nil, err
		}
		result.Collections = append(result.Collections, name)
		result.Inserted[name] = written
		restoredDocuments.WithLabelValues(string(opts.Mode)).Add(float64(written))
	}

	log.Info("backup restored", zap.Strings("collections", result.Collections))
	return result, nil
}

func (s *backupService) restoreCollection(ctx context.Context, name string, snap *domain.CollectionSnapshot, opts domain.RestoreOptions) (int, error) {
	unlock := s.locks.Lock(collectionLockKey(name))
	defer unlock()

	var (
		written int
		err     error
	)
	switch opts.Mode {
	case domain.RestoreModeReplace:
		written, err = s.replaceCollection(ctx, name, snap.Documents)
	case domain.RestoreModeMerge:
		written, err = s.mergeCollection(ctx, name, snap.Documents)
	case domain.RestoreModeSkip:
		written, err = s.insertMissing(ctx, name, snap.Documents)
	default:
		return 0, code.ErrorRestoreModeInvalid.WithDetails(string(opts.Mode))
	}
	if err != nil {
		return written, err
	}

	if opts.CreateIndexes {
		for _, idx := range snap.Indexes {
			if idx.IsPrimary() {
				continue
			}
			if err := s.store.CreateIndex(ctx, name, idx); err != nil {
				return written, errors.Wrapf(err, "create index %s on %s", idx.Name, name)
			}
		}
	}
	return written, nil
}

// replaceCollection drops the target and inserts every artifact document
func (s *backupService) replaceCollection(ctx context.Context, name string, docs []domain.Document) (int, error) {
	if err := s.store.Drop(ctx, name); err != nil {
		return 0, errors.Wrapf(err, "drop %s", name)
	}
	if err := s.store.CreateCollection(ctx, name); err != nil {
		return 0, errors.Wrapf(err, "recreate %s", name)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.store.InsertMany(ctx, name, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// mergeCollection upserts every artifact document by _id, other target documents are kept
func (s *backupService) mergeCollection(ctx context.Context, name string, docs []domain.Document) (int, error) {
	var anonymous []domain.Document
	for _, doc := range docs {
		id, ok := domain.DocumentID(doc)
		if !ok {
			anonymous = append(anonymous, doc)
			continue
		}
		if err := s.store.ReplaceOrInsert(ctx, name, id, doc); err != nil {
			return 0, err
		}
	}
	if len(anonymous) > 0 {
		if err := s.store.InsertMany(ctx, name, anonymous); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}

// insertMissing inserts only the artifact documents whose _id is absent from the target
func (s *backupService) insertMissing(ctx context.Context, name string, docs []domain.Document) (int, error) {
	existing, err := s.store.Find(ctx, name)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", name)
	}
	present := make(map[string]struct{}, len(existing))
	for _, doc := range existing {
		if id, ok := domain.DocumentID(doc); ok {
			present[domain.IDKey(id)] = struct{}{}
		}
	}

	missing := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if id, ok := domain.DocumentID(doc); ok {
			key := domain.IDKey(id)
			if _, found := present[key]; found {
				continue
			}
			present[key] = struct{}{}
		}
		missing = append(missing, doc)
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := s.store.InsertMany(ctx, name, missing); err != nil {
		return 0, err
	}
	return len(missing), nil
}

// DeleteBackup marks the catalog row, removes the artifact and then the row
// DeleteBackup 先标记目录记录，再删除制品，最后删除记录
func (s *backupService) DeleteBackup(ctx context.Context, id string) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "backup.delete")
	defer span.Finish()
	defer observe("delete", time.Now(), &err)

	unlock := s.locks.Lock(backupLockKey(id))
	defer unlock()

	record, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return code.ErrorBackupNotFound
	}

	if record.Status != domain.BackupStatusDeleting {
		if err := s.catalog.UpdateStatus(ctx, id, domain.BackupStatusDeleting, ""); err != nil {
			return errors.Wrap(err, "mark backup for deletion")
		}
	}
	if err := s.finishDelete(ctx, record); err != nil {
		return err
	}
	s.logger.Info("backup deleted", zap.String(logger.FieldBackupID, id))
	return nil
}

// finishDelete removes the artifact, a missing artifact is not an error, then the row
func (s *backupService) finishDelete(ctx context.Context, record *domain.BackupCatalog) error {
	if record.StorageKey != "" {
		if err := s.blobs.Delete(ctx, record.StorageKey); err != nil && !errors.Is(err, code.ErrorStorageKeyNotFound) {
			return errors.Wrap(err, "delete artifact")
		}
	}
	if err := s.catalog.Delete(ctx, record.ID); err != nil {
		return errors.Wrap(err, "delete catalog record")
	}
	return nil
}

func (s *backupService) RecoverPendingDeletions(ctx context.Context) (int, error) {
	pending, err := s.catalog.List(ctx, domain.BackupStatusDeleting)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, record := range pending {
		unlock := s.locks.Lock(backupLockKey(record.ID))
		err := s.finishDelete(ctx, record)
		unlock()
		if err != nil {
			s.logger.Warn("finish pending deletion failed", zap.String(logger.FieldBackupID, record.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("pending deletions recovered", zap.Int(logger.FieldCount, recovered))
	}
	return recovered, nil
}

// CleanupOldBackups deletes backups older than the retention window together
// with every backup beyond the newest maxBackups. Failed rows older than the
// retention window are removed as well.
// CleanupOldBackups 删除超出保留天数的备份以及超出最大数量的备份，并清除过期的失败记录
func (s *backupService) CleanupOldBackups(ctx context.Context, req *dto.BackupConfigRequest) (result *dto.CleanupResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "backup.cleanup")
	defer span.Finish()
	defer observe("cleanup", time.Now(), &err)

	cfg, err := ResolveBackupConfig(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.RecoverPendingDeletions(ctx); err != nil {
		s.logger.Warn("recover pending deletions", zap.Error(err))
	}

	backups, err := s.catalog.List(ctx, domain.BackupStatusCompleted)
	if err != nil {
		return nil, err
	}

	expired := selectExpired(backups, s.now(), cfg.RetentionDays, cfg.MaxBackups)
	result = &dto.CleanupResult{}
	for _, id := range expired {
		if err := s.DeleteBackup(ctx, id); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String(logger.FieldBackupID, id), zap.Error(err))
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Deleted++
	}
	result.Remaining = len(backups) - result.Deleted
	result.PrunedFailed = s.pruneFailed(ctx, s.now().AddDate(0, 0, -cfg.RetentionDays))

	s.logger.Info("backup cleanup finished",
		zap.Int("deleted", result.Deleted),
		zap.Int("remaining", result.Remaining),
		zap.Int("prunedFailed", result.PrunedFailed),
	)
	return result, nil
}

// pruneFailed removes failed catalog rows created before cutoff
func (s *backupService) pruneFailed(ctx context.Context, cutoff time.Time) int {
	failed, err := s.catalog.List(ctx, domain.BackupStatusFailed)
	if err != nil {
		s.logger.Warn("list failed backups", zap.Error(err))
		return 0
	}
	pruned := 0
	for _, b := range failed {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.DeleteBackup(ctx, b.ID); err != nil {
			s.logger.Warn("prune failed backup", zap.String(logger.FieldBackupID, b.ID), zap.Error(err))
			continue
		}
		pruned++
	}
	return pruned
}

// selectExpired unions the age based and count based deletion sets.
// backups must be sorted newest first.
func selectExpired(backups []*domain.BackupCatalog, now time.Time, retentionDays, maxBackups int) []string {
	cutoff := now.AddDate(0, 0, -retentionDays)
	var ids []string
	for i, b := range backups {
		if b.Timestamp.Before(cutoff) || i >= maxBackups {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func (s *backupService) GetBackupStats(ctx context.Context) (*dto.BackupStats, error) {
	backups, err := s.catalog.List(ctx, domain.BackupStatusCompleted)
	if err != nil {
		return nil, err
	}
	counts, err := s.catalog.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &dto.BackupStats{
		TotalBackups:      len(backups),
		SuccessfulBackups: counts[domain.BackupStatusCompleted],
		FailedBackups:     counts[domain.BackupStatusFailed],
		PendingDeletions:  counts[domain.BackupStatusDeleting],
	}
	for _, b := range backups {
		stats.TotalSize += b.Size
	}
	if n := len(backups); n > 0 {
		newest := backups[0].Timestamp
		oldest := backups[n-1].Timestamp
		stats.NewestBackup = &newest
		stats.OldestBackup = &oldest
		stats.AverageSize = stats.TotalSize / int64(n)
	}

	if reporter, ok := s.blobs.(storage.UsageReporter); ok {
		usage, err := reporter.Usage(ctx)
		if err != nil {
			s.logger.Warn("read storage usage", zap.Error(err))
		} else {
			stats.Storage = &dto.StorageUsage{
				Path:        usage.Path,
				Total:       usage.Total,
				Free:        usage.Free,
				Used:        usage.Used,
				UsedPercent: usage.UsedPercent,
			}
		}
	}
	return stats, nil
}

func resolveRestoreOptions(req *dto.RestoreRequest) (domain.RestoreOptions, error) {
	if req == nil || req.BackupID == "" {
		return domain.RestoreOptions{}, code.ErrorInvalidParams.WithDetails("backupId is required")
	}
	opts := domain.RestoreOptions{
		BackupID:      req.BackupID,
		Collections:   req.Collections,
		Mode:          domain.RestoreModeReplace,
		ValidateData:  true,
		CreateIndexes: true,
	}
	if req.Mode != "" {
		opts.Mode = domain.RestoreMode(req.Mode)
	}
	if !opts.Mode.Valid() {
		return opts, code.ErrorRestoreModeInvalid.WithDetails(req.Mode)
	}
	if req.ValidateData != nil {
		opts.ValidateData = *req.ValidateData
	}
	if req.CreateIndexes != nil {
		opts.CreateIndexes = *req.CreateIndexes
	}
	return opts, nil
}

func catalogToDTO(r *domain.BackupCatalog) *dto.BackupDTO {
	return &dto.BackupDTO{
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		Config:      r.Config,
		Metadata:    r.Metadata,
		Collections: r.Collections,
		Size:        r.Size,
		Status:      r.Status,
	}
}

package storage

import (
	"context"

	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/storage/aliyun_oss"
	"github.com/haierkeys/fast-backup-service/pkg/storage/aws_s3"
	"github.com/haierkeys/fast-backup-service/pkg/storage/cloudflare_r2"
	"github.com/haierkeys/fast-backup-service/pkg/storage/local_fs"
	"github.com/haierkeys/fast-backup-service/pkg/storage/minio"
	"github.com/haierkeys/fast-backup-service/pkg/storage/object"
	"github.com/haierkeys/fast-backup-service/pkg/storage/webdav"

	"go.uber.org/zap"
)

type Type = string
type CloudType = Type

const OSS CloudType = "oss"
const R2 CloudType = "r2"
const S3 CloudType = "s3"
const LOCAL Type = "localfs"
const MinIO CloudType = "minio"
const WebDAV CloudType = "webdav"

var StorageTypeMap = map[Type]bool{
	OSS:    true,
	R2:     true,
	S3:     true,
	LOCAL:  true,
	MinIO:  true,
	WebDAV: true,
}

type ObjectInfo = object.Info
type Usage = object.Usage

// Config Unified storage configuration
// Config 统一存储配置
type Config struct {
	Type Type `yaml:"type" default:"localfs"`

	CustomPath string `yaml:"custom-path"`

	// Cloud Storage (S3/OSS/MinIO/R2)
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	AccountID       string `yaml:"account-id"` // Cloudflare R2 specific

	// WebDAV
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Local FS
	SavePath string `yaml:"save-path" default:"storage/backups"`
}

// Storager is the durable artifact store, one object per key
// Storager 持久化制品存储，每个 key 对应一个对象
type Storager interface {
	Write(ctx context.Context, key string, content []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// UsageReporter is implemented by backends that can report volume capacity
// UsageReporter 由可以报告容量的后端实现
type UsageReporter interface {
	Usage(ctx context.Context) (*Usage, error)
}

var (
	_ Storager      = (*local_fs.LocalFS)(nil)
	_ UsageReporter = (*local_fs.LocalFS)(nil)
	_ Storager      = (*aws_s3.S3)(nil)
	_ Storager      = (*minio.MinIO)(nil)
	_ Storager      = (*cloudflare_r2.R2)(nil)
	_ Storager      = (*aliyun_oss.OSS)(nil)
	_ Storager      = (*webdav.WebDAV)(nil)
)

// NewClient builds the backend selected by config.Type
// NewClient 根据 config.Type 创建存储后端
func NewClient(config *Config, logger *zap.Logger) (Storager, error) {
	if config == nil {
		return nil, code.ErrorInvalidStorageType
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch config.Type {
	case LOCAL:
		return local_fs.NewClient(&local_fs.Config{
			SavePath:   config.SavePath,
			CustomPath: config.CustomPath,
		})
	case OSS:
		return aliyun_oss.NewClient(&aliyun_oss.Config{
			Endpoint:        config.Endpoint,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			CustomPath:      config.CustomPath,
		})
	case R2:
		return cloudflare_r2.NewClient(&cloudflare_r2.Config{
			AccountID:       config.AccountID,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			CustomPath:      config.CustomPath,
		}, cloudflare_r2.WithLogger(logger))
	case S3:
		return aws_s3.NewClient(&aws_s3.Config{
			Endpoint:        config.Endpoint,
			Region:          config.Region,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			CustomPath:      config.CustomPath,
		}, aws_s3.WithLogger(logger))
	case MinIO:
		return minio.NewClient(&minio.Config{
			Endpoint:        config.Endpoint,
			Region:          config.Region,
			BucketName:      config.BucketName,
			AccessKeyID:     config.AccessKeyID,
			AccessKeySecret: config.AccessKeySecret,
			CustomPath:      config.CustomPath,
		}, minio.WithLogger(logger))
	case WebDAV:
		return webdav.NewClient(&webdav.Config{
			Endpoint:   config.Endpoint,
			User:       config.User,
			Password:   config.Password,
			CustomPath: config.CustomPath,
		})
	}
	return nil, code.ErrorInvalidStorageType
}

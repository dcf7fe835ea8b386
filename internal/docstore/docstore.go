package docstore

import (
	"context"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"go.uber.org/zap"
)

const (
	TypeMemory  = "memory"
	TypeMongoDB = "mongodb"
)

// Config 文档存储配置
type Config struct {
	// Type memory 或 mongodb
	Type string `yaml:"type" default:"mongodb"`
	// URI mongodb 连接串
	URI string `yaml:"uri" default:"mongodb://127.0.0.1:27017"`
	// Database 数据库名
	Database string `yaml:"database" default:"farm"`
	// ConnectTimeout 连接超时
	ConnectTimeout time.Duration `yaml:"connect-timeout" default:"10s"`
}

// NewStore creates the document store named by cfg.Type
// NewStore 根据配置类型创建文档存储
func NewStore(ctx context.Context, cfg *Config, logger *zap.Logger) (domain.DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		return nil, code.ErrorInvalidStoreType
	}
	switch cfg.Type {
	case TypeMemory:
		logger.Warn("using in-memory document store, data is lost on exit")
		return NewMemoryStore(), nil
	case TypeMongoDB:
		return NewMongoStore(ctx, cfg, logger)
	}
	return nil, code.ErrorInvalidStoreType.WithDetails(cfg.Type)
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	internalApp "github.com/haierkeys/fast-backup-service/internal/app"
	"github.com/haierkeys/fast-backup-service/internal/dao"
	"github.com/haierkeys/fast-backup-service/internal/docstore"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"github.com/haierkeys/fast-backup-service/pkg/storage"

	"github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"go.uber.org/zap"
)

// container 运行服务与 CLI 子命令共用的依赖
type container struct {
	config *internalApp.AppConfig
	logger *zap.Logger
	app    *internalApp.App
	tracer io.Closer
}

// openContainer 加载配置并按顺序初始化日志、目录数据库、文档存储、制品存储与 App Container
func openContainer(ctx context.Context, configPath string, runMode string) (*container, error) {
	appConfig, _, err := internalApp.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if runMode == "" {
		runMode = appConfig.Server.RunMode
	}

	lg, err := logger.NewLogger(logger.Config{
		Level:      appConfig.Log.Level,
		File:       appConfig.Log.File,
		Production: appConfig.Log.Production,
	})
	if err != nil {
		return nil, fmt.Errorf("initLogger: %w", err)
	}

	if err := initStorageDirs(appConfig); err != nil {
		return nil, fmt.Errorf("initStorage: %w", err)
	}

	tracer, err := initTracer(appConfig.Tracer, lg)
	if err != nil {
		return nil, fmt.Errorf("initTracer: %w", err)
	}

	db, err := dao.NewDBEngine(appConfig.Database, runMode)
	if err != nil {
		return nil, fmt.Errorf("initDatabase: %w", err)
	}

	store, err := docstore.NewStore(ctx, &appConfig.DocumentStore, lg)
	if err != nil {
		return nil, fmt.Errorf("initDocumentStore: %w", err)
	}

	blobs, err := storage.NewClient(&appConfig.Storage, lg)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("initArtifactStorage: %w", err)
	}

	a, err := internalApp.NewApp(appConfig, lg, db, store, blobs)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}

	return &container{config: appConfig, logger: lg, app: a, tracer: tracer}, nil
}

// Close 关闭 App Container 与追踪器
func (c *container) Close(ctx context.Context) error {
	err := c.app.Shutdown(ctx)
	if c.tracer != nil {
		_ = c.tracer.Close()
	}
	_ = c.logger.Sync()
	return err
}

// initTracer 配置了 jaeger agent 时上报 span，否则使用 noop tracer
func initTracer(cfg internalApp.TracerConfig, lg *zap.Logger) (io.Closer, error) {
	if !cfg.Enabled || cfg.JaegerAgent == "" {
		opentracing.SetGlobalTracer(opentracing.NoopTracer{})
		return nil, nil
	}

	jc := jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: cfg.JaegerAgent,
		},
	}
	tracer, closer, err := jc.NewTracer()
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	lg.Info("jaeger tracer enabled", zap.String("agent", cfg.JaegerAgent), zap.String("service", cfg.ServiceName))
	return closer, nil
}

// initStorageDirs 创建日志、目录数据库与本地制品目录
func initStorageDirs(cfg *internalApp.AppConfig) error {
	dirs := []string{filepath.Dir(cfg.Log.File)}
	if cfg.Database.Type == "sqlite" {
		dirs = append(dirs, filepath.Dir(cfg.Database.Path))
	}
	if cfg.Storage.Type == storage.LOCAL {
		dirs = append(dirs, cfg.Storage.SavePath)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0754); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	internalApp "github.com/haierkeys/fast-backup-service/internal/app"
	"github.com/haierkeys/fast-backup-service/internal/routers"
	"github.com/haierkeys/fast-backup-service/pkg/safe_close"
	"github.com/haierkeys/fast-backup-service/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	validatorV10 "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"go.uber.org/zap"
)

// DefaultShutdownTimeout default shutdown timeout duration
// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

type Server struct {
	logger            *zap.Logger             // Logger // 日志对象
	config            *internalApp.AppConfig  // App configuration (injected dependency) // 应用配置（注入的依赖）
	ut                *ut.UniversalTranslator // Translator // 翻译器
	httpServer        *http.Server
	privateHttpServer *http.Server
	sc                *safe_close.SafeClose
	container         *container
}

func NewServer(runEnv *runFlags) (*Server, error) {

	// Determine run mode
	// 确定运行模式
	runMode := runEnv.runMode
	c, err := openContainer(context.Background(), runEnv.config, runMode)
	if err != nil {
		return nil, err
	}
	appConfig := c.config
	if len(runMode) <= 0 {
		runMode = appConfig.Server.RunMode
	}
	if len(runEnv.port) > 0 {
		appConfig.Server.HttpPort = runEnv.port
	}

	if len(runMode) > 0 {
		gin.SetMode(runMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		logger:    c.logger,
		config:    appConfig,
		sc:        safe_close.NewSafeClose(),
		container: c,
	}

	// Initialize validator
	// 初始化验证器
	uni, err := initValidatorWithLogger(s.logger)
	if err != nil {
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("initValidator: %w", err)
	}
	s.ut = uni

	// Start scheduler
	// 启动调度器
	if appConfig.Scheduler.Enabled {
		c.app.Scheduler.Start()
	}

	banner := `
    ______           __     ____             __
   / ____/___ ______/ /_   / __ )____ ______/ /____  ______
  / /_  / __  / ___/ __/  / __  / __  / ___/ //_/ / / / __ \
 / __/ / /_/ (__  ) /_   / /_/ / /_/ / /__/ ,< / /_/ / /_/ /
/_/    \__,_/____/\__/  /_____/\__,_/\___/_/|_|\__,_/ .___/
                                                   /_/      `
	s.logger.Warn(fmt.Sprintf("%s\n\n%s v%s\nGit: %s\nBuildTime: %s\n", banner, internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))

	s.logger.Warn("config loaded", zap.String("path", appConfig.File))

	// Start HTTP API server
	// 启动 HTTP API 服务器
	if httpAddr := appConfig.Server.HttpPort; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", appConfig.Server.HttpPort))
		s.httpServer = &http.Server{
			Addr:           appConfig.Server.HttpPort,
			Handler:        routers.NewRouter(c.app, s.ut),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.attachHTTP("api service", s.httpServer)
	}

	if httpAddr := appConfig.Server.PrivateHttpListen; len(httpAddr) > 0 {
		s.logger.Info("api_router", zap.String("config.server.PrivateHttpListen", appConfig.Server.PrivateHttpListen))
		s.privateHttpServer = &http.Server{
			Addr:           appConfig.Server.PrivateHttpListen,
			Handler:        routers.NewPrivateRouterWithLogger(runMode, c.app, s.logger),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.attachHTTP("private api service", s.privateHttpServer)
	}

	// Register App Container graceful shutdown (using Shutdown method)
	// 注册 App Container 的优雅关闭（使用 Shutdown 方法）
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal

		// Use graceful shutdown with timeout
		// 使用带超时的优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()

		if err := s.container.Close(ctx); err != nil {
			s.logger.Error("failed to shutdown app container", zap.Error(err))
		} else {
			s.logger.Info("App container shutdown gracefully")
		}
	})

	return s, nil
}

// attachHTTP 启动 HTTP 服务，收到关闭信号后优雅停止
func (s *Server) attachHTTP(name string, srv *http.Server) {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.ListenAndServe()
		}()
		select {
		case err := <-errChan:
			s.logger.Error(name+" err", zap.Error(err))
			s.sc.SendCloseSignal(err)
		case <-closeSignal:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Stop HTTP server
			// 停止 HTTP 服务器
			if err := srv.Shutdown(ctx); err != nil {
				s.logger.Error(name+" shutdown error", zap.Error(err))
			}
		}
	})
}

// initValidatorWithLogger initializes validator, returns UniversalTranslator
// initValidatorWithLogger 初始化验证器，返回 UniversalTranslator
func initValidatorWithLogger(lg *zap.Logger) (*ut.UniversalTranslator, error) {
	customValidator := validator.Default()
	binding.Validator = customValidator

	uni := ut.New(en.New(), en.New(), zh.New())

	validate, ok := customValidator.Engine().(*validatorV10.Validate)
	if !ok {
		lg.Warn("validator engine is not validator/v10, messages will not be translated")
		return uni, nil
	}

	zhTran, _ := uni.GetTranslator("zh")
	enTran, _ := uni.GetTranslator("en")

	if err := zh_translations.RegisterDefaultTranslations(validate, zhTran); err != nil {
		return nil, err
	}
	if err := en_translations.RegisterDefaultTranslations(validate, enTran); err != nil {
		return nil, err
	}

	return uni, nil
}

// GetApp gets App Container
// GetApp 获取 App Container
func (s *Server) GetApp() *internalApp.App {
	return s.container.app
}

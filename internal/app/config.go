// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"

	"github.com/haierkeys/fast-backup-service/internal/dao"
	"github.com/haierkeys/fast-backup-service/internal/docstore"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/internal/task"
	"github.com/haierkeys/fast-backup-service/pkg/notify"
	"github.com/haierkeys/fast-backup-service/pkg/storage"
	"github.com/haierkeys/fast-backup-service/pkg/workerpool"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File          string          `yaml:"-"` // 配置文件路径，不序列化
	Server        ServerConfig    `yaml:"server"`
	Log           LogConfig       `yaml:"log"`
	Database      dao.Config      `yaml:"database"`
	DocumentStore docstore.Config `yaml:"document-store"`
	Storage       storage.Config  `yaml:"storage"`
	Backup        BackupConfig    `yaml:"backup"`
	Scheduler     task.Config     `yaml:"scheduler"`
	Notify        notify.Config   `yaml:"notify"`
	Tracer        TracerConfig    `yaml:"tracer"`
	App           AppSettings     `yaml:"app"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info"`
	// File 日志文件路径，默认为 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 端口
	HttpPort string `yaml:"http-port" default:":9100"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒），恢复大备份时需要调大
	WriteTimeout int `yaml:"write-timeout" default:"600"`
	// PrivateHttpListen 私有 HTTP 监听地址，为空时不启动
	PrivateHttpListen string `yaml:"private-http-listen" default:":9101"`
}

// BackupConfig 定时清理使用的默认备份配置，未填写的字段使用内置默认值
type BackupConfig struct {
	Collections    []string `yaml:"collections"`
	IncludeIndexes *bool    `yaml:"include-indexes"`
	Compression    *bool    `yaml:"compression"`
	RetentionDays  *int     `yaml:"retention-days"`
	Schedule       *string  `yaml:"schedule"`
	MaxBackups     *int     `yaml:"max-backups"`
}

// Request converts the yaml section into a backup config request
func (c BackupConfig) Request() *dto.BackupConfigRequest {
	return &dto.BackupConfigRequest{
		Collections:    c.Collections,
		IncludeIndexes: c.IncludeIndexes,
		Compression:    c.Compression,
		RetentionDays:  c.RetentionDays,
		Schedule:       c.Schedule,
		MaxBackups:     c.MaxBackups,
	}
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header 追踪 ID 请求头名称，默认 X-Trace-ID
	Header string `yaml:"header" default:"X-Trace-ID"`
	// JaegerAgent jaeger agent 地址，为空时只生成 Trace ID 不上报
	JaegerAgent string `yaml:"jaeger-agent"`
	// ServiceName 上报的服务名
	ServiceName string `yaml:"service-name" default:"fast-backup-service"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 默认上下文超时时间（秒）
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"600"`
	// RateLimit 每秒允许的 API 请求数，0 表示不限制
	RateLimit int `yaml:"rate-limit" default:"20"`
	// HeavyWorkers 同时执行的备份/恢复操作数量上限
	HeavyWorkers int `yaml:"heavy-workers" default:"2"`
	// HeavyQueueSize 等待执行的备份/恢复操作队列长度
	HeavyQueueSize int `yaml:"heavy-queue-size" default:"16"`
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	c := new(AppConfig)
	c.File = realpath

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "set default config failed")
	}

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	err = yaml.Unmarshal(file, c)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "parse config file failed")
	}

	// 再次设置默认值，以填充 YAML 中存在但值为空的字段
	// defaults.Set 只有在字段为该类型的零值时才会填充
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "re-set default config failed")
	}

	return c, realpath, nil
}

// GetWorkerPoolConfig 获取备份/恢复 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()

	if c.App.HeavyWorkers > 0 {
		cfg.MaxWorkers = c.App.HeavyWorkers
	}
	if c.App.HeavyQueueSize > 0 {
		cfg.QueueSize = c.App.HeavyQueueSize
	}

	return cfg
}

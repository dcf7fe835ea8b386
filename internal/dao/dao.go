package dao

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/model"
	"github.com/haierkeys/fast-backup-service/pkg/fileurl"
	"github.com/haierkeys/fast-backup-service/pkg/util"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/gormTracing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// Config 目录数据库配置
type Config struct {
	// Type sqlite、mysql 或 postgres
	Type string `yaml:"type" default:"sqlite"`
	// Path SQLite 数据库文件路径
	Path string `yaml:"path" default:"storage/database/catalog.sqlite3"`
	// UserName 用户名
	UserName string `yaml:"username"`
	// Password 密码
	Password string `yaml:"password"`
	// Host 主机
	Host string `yaml:"host"`
	// ReplicaHosts 只读副本主机，凭据与主库相同，sqlite 忽略
	ReplicaHosts []string `yaml:"replica-hosts"`
	// Port 端口，仅 postgres 使用
	Port int `yaml:"port" default:"5432"`
	// Name 数据库名
	Name string `yaml:"name"`
	// TablePrefix 表前缀
	TablePrefix string `yaml:"table-prefix"`
	// AutoMigrate 是否启用自动迁移
	AutoMigrate bool `yaml:"auto-migrate" default:"true"`
	// Charset 字符集
	Charset string `yaml:"charset" default:"utf8mb4"`
	// ParseTime 是否解析时间
	ParseTime bool `yaml:"parse-time" default:"true"`
	// MaxIdleConns 最大闲置连接数
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数，sqlite 固定为 1
	MaxOpenConns int `yaml:"max-open-conns" default:"100"`
	// ConnMaxLifetime 连接最大生命周期，支持格式：30m（分钟）、1h（小时）
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
}

// Dao 数据访问对象，持有目录数据库连接
type Dao struct {
	Db     *gorm.DB
	logger *zap.Logger
}

// New wraps an opened gorm connection
// New 包装已打开的 gorm 连接
func New(db *gorm.DB, logger *zap.Logger) *Dao {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dao{Db: db, logger: logger}
}

// DB returns a session bound to ctx
func (d *Dao) DB(ctx context.Context) *gorm.DB {
	return d.Db.WithContext(ctx)
}

// Migrate creates or updates every catalog table
// Migrate 创建或更新全部目录表
func (d *Dao) Migrate() error {
	if err := model.AutoMigrateAll(d.Db); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// Close closes the underlying sql.DB
func (d *Dao) Close() error {
	sqlDB, err := d.Db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewDBEngine opens the catalog database described by c
// NewDBEngine 打开目录数据库
func NewDBEngine(c Config, runMode string) (*gorm.DB, error) {
	dialector, err := useDialector(c)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix, // 表名前缀
			SingularTable: true,          // 使用单数表名
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open catalog database")
	}
	if runMode == "debug" {
		db.Config.Logger = logger.Default.LogMode(logger.Info)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	if c.Type == "sqlite" {
		// sqlite 只允许单个写连接，避免 database is locked
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(parseDurationOr(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(parseDurationOr(c.ConnMaxIdleTime, 10*time.Minute))

	if err := useReplicas(db, c); err != nil {
		return nil, err
	}

	_ = db.Use(&gormTracing.OpentracingPlugin{})

	return db, nil
}

// useReplicas 注册只读副本，列表与统计查询走副本，写入走主库
func useReplicas(db *gorm.DB, c Config) error {
	if len(c.ReplicaHosts) == 0 || c.Type == "sqlite" {
		return nil
	}

	replicas := make([]gorm.Dialector, 0, len(c.ReplicaHosts))
	for _, host := range c.ReplicaHosts {
		rc := c
		rc.Host = host
		d, err := useDialector(rc)
		if err != nil {
			return err
		}
		replicas = append(replicas, d)
	}

	err := db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}).
		SetMaxIdleConns(c.MaxIdleConns).
		SetMaxOpenConns(c.MaxOpenConns).
		SetConnMaxLifetime(parseDurationOr(c.ConnMaxLifetime, 30*time.Minute)))
	if err != nil {
		return errors.Wrap(err, "register catalog replicas")
	}
	return nil
}

func useDialector(c Config) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName,
			c.Password,
			c.Host,
			c.Name,
			c.Charset,
			c.ParseTime,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=Local",
			c.Host,
			c.Port,
			c.UserName,
			c.Password,
			c.Name,
		)), nil
	case "sqlite":
		if c.Path != ":memory:" && !fileurl.IsExist(c.Path) {
			if err := fileurl.CreatePath(c.Path, os.ModePerm); err != nil {
				return nil, errors.Wrap(err, "create sqlite dir")
			}
		}
		return sqlite.Open(c.Path), nil
	}
	return nil, errors.Errorf("unsupported database type %q", c.Type)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := util.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

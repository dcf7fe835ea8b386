package aws_s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
	// UsePathStyle is required by most self hosted S3 compatible servers
	UsePathStyle bool `yaml:"use-path-style"`
}

type S3 struct {
	S3Client *s3.Client
	// TransferManager 大制品走分片上传
	TransferManager *transfermanager.Client
	Config   *Config
	logger   *zap.Logger
	name     string
}

// Option 配置选项函数类型
type Option func(*S3)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(s *S3) {
		s.logger = logger
	}
}

// WithName sets the backend name used in wrapped errors
// WithName 设置错误信息中使用的后端名称
func WithName(name string) Option {
	return func(s *S3) {
		s.name = name
	}
}

// NewClient 创建 S3 存储实例
func NewClient(conf *Config, opts ...Option) (*S3, error) {
	if conf == nil || conf.BucketName == "" {
		return nil, errors.New("aws_s3: bucket name is required")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKeyID, conf.AccessKeySecret, "")),
		config.WithRegion(conf.Region),
	)
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
		o.UsePathStyle = conf.UsePathStyle
	})

	s := &S3{
		S3Client:        client,
		TransferManager: transfermanager.New(client),
		Config:          conf,
		logger:          zap.NewNop(),
		name:            "aws_s3",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

package minio

import (
	"github.com/haierkeys/fast-backup-service/pkg/storage/aws_s3"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	BucketName      string `yaml:"bucket-name"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

// MinIO talks to a MinIO server through the S3 API with path style addressing
// MinIO 通过 S3 协议（路径风格）访问 MinIO
type MinIO struct {
	*aws_s3.S3
}

type Option func(*options)

type options struct {
	logger *zap.Logger
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func NewClient(conf *Config, opts ...Option) (*MinIO, error) {
	if conf == nil || conf.Endpoint == "" {
		return nil, errors.New("minio: endpoint is required")
	}
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := aws_s3.NewClient(&aws_s3.Config{
		Endpoint:        conf.Endpoint,
		Region:          region,
		BucketName:      conf.BucketName,
		AccessKeyID:     conf.AccessKeyID,
		AccessKeySecret: conf.AccessKeySecret,
		CustomPath:      conf.CustomPath,
		UsePathStyle:    true,
	}, aws_s3.WithLogger(o.logger), aws_s3.WithName("minio"))
	if err != nil {
		return nil, err
	}
	return &MinIO{S3: client}, nil
}

package cloudflare_r2

import (
	"fmt"

	"github.com/haierkeys/fast-backup-service/pkg/storage/aws_s3"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	AccountID       string `yaml:"account-id"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	CustomPath      string `yaml:"custom-path"`
}

// R2 talks to Cloudflare R2 through its S3 compatible endpoint
// R2 通过 S3 兼容接口访问 Cloudflare R2
type R2 struct {
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

func NewClient(conf *Config, opts ...Option) (*R2, error) {
	if conf == nil || conf.AccountID == "" {
		return nil, errors.New("cloudflare_r2: account id is required")
	}
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	client, err := aws_s3.NewClient(&aws_s3.Config{
		Endpoint:        fmt.Sprintf("https://%s.r2.cloudflarestorage.com", conf.AccountID),
		Region:          "auto",
		BucketName:      conf.BucketName,
		AccessKeyID:     conf.AccessKeyID,
		AccessKeySecret: conf.AccessKeySecret,
		CustomPath:      conf.CustomPath,
	}, aws_s3.WithLogger(o.logger), aws_s3.WithName("cloudflare_r2"))
	if err != nil {
		return nil, err
	}
	return &R2{S3: client}, nil
}

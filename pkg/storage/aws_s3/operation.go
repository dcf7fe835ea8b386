package aws_s3

import (
	"bytes"
	"context"
	"io"

	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/fileurl"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"github.com/haierkeys/fast-backup-service/pkg/storage/object"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	tmtypes "github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (p *S3) objectKey(key string) string {
	return fileurl.JoinKey(p.Config.CustomPath, key)
}

// multipartThreshold 超过该大小的制品使用 transfermanager 分片上传
const multipartThreshold = 16 << 20

func (p *S3) Write(ctx context.Context, key string, content []byte) error {
	fileKey := p.objectKey(key)

	var err error
	if len(content) > multipartThreshold && p.TransferManager != nil {
		_, err = p.TransferManager.UploadObject(ctx, &transfermanager.UploadObjectInput{
			Bucket:            aws.String(p.Config.BucketName),
			Key:               aws.String(fileKey),
			Body:              bytes.NewReader(content),
			ChecksumAlgorithm: tmtypes.ChecksumAlgorithmSha256,
		})
	} else {
		_, err = p.S3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:            aws.String(p.Config.BucketName),
			Key:               aws.String(fileKey),
			Body:              bytes.NewReader(content),
			ContentLength:     aws.Int64(int64(len(content))),
			ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		})
	}
	if err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			p.logger.Error("bucket does not exist", zap.String(logger.FieldBucket, p.Config.BucketName))
		}
		return errors.Wrap(err, p.name)
	}
	return nil
}

func (p *S3) Read(ctx context.Context, key string) ([]byte, error) {
	out, err := p.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(p.objectKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, p.name)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, p.name)
	}
	return content, nil
}

func (p *S3) List(ctx context.Context, prefix string) ([]object.Info, error) {
	paginator := s3.NewListObjectsV2Paginator(p.S3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.Config.BucketName),
		Prefix: aws.String(p.objectKey(prefix)),
	})

	var result []object.Info
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, p.name)
		}
		for _, obj := range page.Contents {
			result = append(result, object.Info{
				Key:     fileurl.TrimKeyPrefix(p.Config.CustomPath, aws.ToString(obj.Key)),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return result, nil
}

func (p *S3) Stat(ctx context.Context, key string) (*object.Info, error) {
	out, err := p.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(p.objectKey(key)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, p.name)
	}
	return &object.Info{
		Key:     key,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

func (p *S3) Delete(ctx context.Context, key string) error {
	_, err := p.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(p.objectKey(key)),
	})
	return errors.Wrap(err, p.name)
}

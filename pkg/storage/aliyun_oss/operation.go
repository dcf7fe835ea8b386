package aliyun_oss

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/fileurl"
	"github.com/haierkeys/fast-backup-service/pkg/storage/object"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"
)

func (p *OSS) objectKey(key string) string {
	return fileurl.JoinKey(p.Config.CustomPath, key)
}

func isNotFound(err error) bool {
	if se, ok := err.(oss.ServiceError); ok {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}

func (p *OSS) Write(ctx context.Context, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(p.Bucket.PutObject(p.objectKey(key), bytes.NewReader(content)), "aliyun_oss")
}

func (p *OSS) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := p.Bucket.GetObject(p.objectKey(key))
	if err != nil {
		if isNotFound(err) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, "aliyun_oss")
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "aliyun_oss")
	}
	return content, nil
}

func (p *OSS) List(ctx context.Context, prefix string) ([]object.Info, error) {
	var result []object.Info
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opts := []oss.Option{oss.Prefix(p.objectKey(prefix))}
		if token != "" {
			opts = append(opts, oss.ContinuationToken(token))
		}
		page, err := p.Bucket.ListObjectsV2(opts...)
		if err != nil {
			return nil, errors.Wrap(err, "aliyun_oss")
		}
		for _, obj := range page.Objects {
			result = append(result, object.Info{
				Key:     fileurl.TrimKeyPrefix(p.Config.CustomPath, obj.Key),
				Size:    obj.Size,
				ModTime: obj.LastModified,
			})
		}
		if !page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}
	return result, nil
}

func (p *OSS) Stat(ctx context.Context, key string) (*object.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	header, err := p.Bucket.GetObjectMeta(p.objectKey(key))
	if err != nil {
		if isNotFound(err) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, "aliyun_oss")
	}
	size, _ := strconv.ParseInt(header.Get("Content-Length"), 10, 64)
	modTime, _ := time.Parse(http.TimeFormat, header.Get("Last-Modified"))
	return &object.Info{Key: key, Size: size, ModTime: modTime}, nil
}

func (p *OSS) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(p.Bucket.DeleteObject(p.objectKey(key)), "aliyun_oss")
}

package webdav

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/fileurl"
	"github.com/haierkeys/fast-backup-service/pkg/storage/object"

	"github.com/pkg/errors"
	"github.com/studio-b12/gowebdav"
)

func (w *WebDAV) objectKey(key string) string {
	return "/" + fileurl.JoinKey(w.Config.CustomPath, key)
}

func (w *WebDAV) Write(ctx context.Context, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fileKey := w.objectKey(key)
	if err := w.Client.MkdirAll(path.Dir(fileKey), 0755); err != nil {
		return errors.Wrap(err, "webdav")
	}
	return errors.Wrap(w.Client.Write(fileKey, content, 0644), "webdav")
}

func (w *WebDAV) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := w.Client.Read(w.objectKey(key))
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, "webdav")
	}
	return content, nil
}

// List walks the directory that contains prefix and filters keys by prefix
// List 遍历 prefix 所在目录并按前缀过滤
func (w *WebDAV) List(ctx context.Context, prefix string) ([]object.Info, error) {
	root := "/" + strings.Trim(w.Config.CustomPath, "/")
	dir := path.Join(root, path.Dir(prefix))

	var result []object.Info
	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := w.Client.ReadDir(dir)
		if err != nil {
			if gowebdav.IsErrNotFound(err) {
				return nil
			}
			return err
		}
		for _, entry := range entries {
			full := path.Join(dir, entry.Name())
			if entry.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			key := strings.TrimPrefix(strings.TrimPrefix(full, root), "/")
			if strings.HasPrefix(key, prefix) {
				result = append(result, object.Info{Key: key, Size: entry.Size(), ModTime: entry.ModTime()})
			}
		}
		return nil
	}
	if err := walk(dir); err != nil {
		return nil, errors.Wrap(err, "webdav")
	}
	return result, nil
}

func (w *WebDAV) Stat(ctx context.Context, key string) (*object.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := w.Client.Stat(w.objectKey(key))
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, "webdav")
	}
	return &object.Info{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (w *WebDAV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := w.Client.Remove(w.objectKey(key))
	if err != nil && !gowebdav.IsErrNotFound(err) && !os.IsNotExist(err) {
		return errors.Wrap(err, "webdav")
	}
	return nil
}

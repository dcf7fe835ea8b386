package local_fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/fileurl"
	"github.com/haierkeys/fast-backup-service/pkg/storage/object"

	"github.com/gookit/goutil/fsutil"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/disk"
)

type Config struct {
	SavePath   string `yaml:"save-path" default:"storage/backups"`
	CustomPath string `yaml:"custom-path"`
}

type LocalFS struct {
	Config *Config
}

func NewClient(conf *Config) (*LocalFS, error) {
	if conf == nil || conf.SavePath == "" {
		return nil, errors.New("local_fs: save path is required")
	}
	return &LocalFS{Config: conf}, nil
}

func (p *LocalFS) root() string {
	return filepath.Join(p.Config.SavePath, filepath.FromSlash(strings.Trim(p.Config.CustomPath, "/")))
}

func (p *LocalFS) path(key string) string {
	return filepath.Join(p.root(), filepath.FromSlash(strings.TrimLeft(key, "/")))
}

// Write stores content through a temp file and rename so readers never see a partial object
// Write 先写临时文件再重命名，读取方不会看到写了一半的对象
func (p *LocalFS) Write(ctx context.Context, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := p.path(key)
	if err := fsutil.MkParentDir(dst); err != nil {
		return errors.Wrap(err, "local_fs")
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return errors.Wrap(err, "local_fs")
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "local_fs")
	}
	return nil
}

func (p *LocalFS) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(p.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, "local_fs")
	}
	return content, nil
}

func (p *LocalFS) List(ctx context.Context, prefix string) ([]object.Info, error) {
	root := p.root()
	if !fsutil.PathExists(root) {
		return nil, nil
	}

	var result []object.Info
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		result = append(result, object.Info{Key: key, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "local_fs")
	}
	return result, nil
}

func (p *LocalFS) Stat(ctx context.Context, key string) (*object.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(p.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, code.ErrorStorageKeyNotFound
		}
		return nil, errors.Wrap(err, "local_fs")
	}
	return &object.Info{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (p *LocalFS) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := p.path(key)
	if fileurl.IsExist(dst) {
		return errors.Wrap(os.Remove(dst), "local_fs")
	}
	return nil
}

// Usage reports capacity of the volume holding SavePath
// Usage 返回 SavePath 所在磁盘的容量
func (p *LocalFS) Usage(ctx context.Context) (*object.Usage, error) {
	path := p.Config.SavePath
	if !fsutil.PathExists(path) {
		path = filepath.Dir(path)
	}
	stat, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "local_fs")
	}
	return &object.Usage{
		Path:        stat.Path,
		Total:       stat.Total,
		Free:        stat.Free,
		Used:        stat.Used,
		UsedPercent: stat.UsedPercent,
	}, nil
}

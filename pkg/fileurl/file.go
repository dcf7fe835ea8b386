package fileurl

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	_, err := os.Stat(dst)
	if err != nil {
		return os.IsExist(err)
	}
	return true
}

// CreatePath creates the parent directory of dst
// CreatePath 创建 dst 的父目录
func CreatePath(dst string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(dst), perm)
}

// PathSuffixCheckAdd checks path suffix, adds it if not exists
// PathSuffixCheckAdd 检查路径后缀，如果没有则添加
func PathSuffixCheckAdd(p string, suffix string) string {
	if !strings.HasSuffix(p, suffix) {
		p = p + suffix
	}
	return p
}

// JoinKey joins an optional prefix and an object key with "/"
// JoinKey 用 "/" 拼接可选前缀与对象键
func JoinKey(prefix string, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// TrimKeyPrefix removes a prefix previously added by JoinKey
// TrimKeyPrefix 去掉 JoinKey 添加的前缀
func TrimKeyPrefix(prefix string, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}

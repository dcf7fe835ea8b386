package service

import (
	"github.com/im7mortal/kmutex"
)

// KeyLock is a per resource advisory lock, callers must release with the returned func
// KeyLock 按资源加锁，调用方必须调用返回的释放函数
type KeyLock struct {
	km *kmutex.Kmutex
}

// NewKeyLock 创建按键互斥锁
func NewKeyLock() *KeyLock {
	return &KeyLock{km: kmutex.New()}
}

// Lock blocks until key is free and returns its release func
func (l *KeyLock) Lock(key string) func() {
	l.km.Lock(key)
	return func() { l.km.Unlock(key) }
}

func backupLockKey(id string) string {
	return "backup:" + id
}

func collectionLockKey(name string) string {
	return "collection:" + name
}

func planLockKey(id string) string {
	return "plan:" + id
}

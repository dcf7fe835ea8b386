package util

import (
	"os"
	"sync"

	"github.com/denisbrodbeck/machineid"
)

var (
	instanceID   string
	instanceOnce sync.Once
)

// InstanceID returns a stable identifier of this host scoped to appID
// InstanceID 返回当前主机在 appID 下的稳定标识，不暴露原始 machine id
// machine id 不可读时（容器内常见）回退到主机名
func InstanceID(appID string) string {
	instanceOnce.Do(func() {
		if id, err := machineid.ProtectedID(appID); err == nil && id != "" {
			instanceID = id[:16]
			return
		}
		if host, err := os.Hostname(); err == nil {
			instanceID = host
		}
	})
	return instanceID
}

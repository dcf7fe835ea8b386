package api_router

import (
	"expvar"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/app"

	"github.com/gin-gonic/gin"
)

var publishOnce sync.Once

// PublishExpvar 发布调度器与 Worker Pool 的运行状态到 /debug/vars
// expvar 名称全局唯一，重复调用时只有第一次生效
func PublishExpvar(a *app.App) {
	publishOnce.Do(func() {
		current := a
		var mu sync.RWMutex
		expvar.Publish("scheduler", expvar.Func(func() any {
			mu.RLock()
			defer mu.RUnlock()
			return current.Scheduler.Status()
		}))
		expvar.Publish("workers", expvar.Func(func() any {
			mu.RLock()
			defer mu.RUnlock()
			return current.WorkerPool().GetMetrics()
		}))
		expvar.Publish("uptime", expvar.Func(func() any {
			mu.RLock()
			defer mu.RUnlock()
			return time.Since(current.StartTime).Seconds()
		}))
		rebind = func(next *app.App) {
			mu.Lock()
			current = next
			mu.Unlock()
		}
	})
	rebind(a)
}

// rebind 配置热重载后切换到新的 App Container
var rebind = func(*app.App) {}

// Expvar 导出系统运行时指标
// 函数名: Expvar
// 函数使用说明: 处理获取系统运行时指标 (expvar) 的 HTTP 请求。将 expvar 导出的 JSON 数据写入响应。
// 参数说明:
//   - c *gin.Context: Gin 上下文
//
// 返回值说明:
//   - JSON: 包含系统指标的 JSON 数据
func Expvar(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	first := true
	report := func(key string, value interface{}) {
		if !first {
			fmt.Fprintf(c.Writer, ",\n")
		}
		first = false
		if str, ok := value.(string); ok {
			fmt.Fprintf(c.Writer, "%q: %q", key, str)
		} else {
			fmt.Fprintf(c.Writer, "%q: %v", key, value)
		}
	}

	fmt.Fprintf(c.Writer, "{\n")
	expvar.Do(func(kv expvar.KeyValue) {
		report(kv.Key, kv.Value)
	})
	fmt.Fprintf(c.Writer, "\n}\n")
}

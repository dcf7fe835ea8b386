// Package limiter provides token bucket rate limiting keyed by request path
// Package limiter 基于请求路径的令牌桶限流
package limiter

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face 限流器接口
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// BucketRule 令牌桶规则
type BucketRule struct {
	// Key 路由前缀
	Key string
	// FillInterval 填充间隔
	FillInterval time.Duration
	// Capacity 桶容量
	Capacity int64
	// Quantum 每次填充的令牌数
	Quantum int64
}

// Limiter 保存所有令牌桶
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*ratelimit.Bucket
}

// Key 返回请求对应的限流键
func (l *Limiter) Key(c *gin.Context) string {
	return c.FullPath()
}

// GetBucket 获取令牌桶
func (l *Limiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.buckets[key]
	return b, ok
}

// AddBuckets 添加令牌桶，已存在的键不会被覆盖
func (l *Limiter) AddBuckets(rules ...BucketRule) Face {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rule := range rules {
		if _, ok := l.buckets[rule.Key]; ok {
			continue
		}
		l.buckets[rule.Key] = ratelimit.NewBucketWithQuantum(rule.FillInterval, rule.Capacity, rule.Quantum)
	}
	return l
}

// MethodLimiter 按 "METHOD path" 限流
type MethodLimiter struct {
	*Limiter
}

// NewMethodLimiter 创建按方法与路由限流的限流器
func NewMethodLimiter() Face {
	return MethodLimiter{Limiter: &Limiter{buckets: make(map[string]*ratelimit.Bucket)}}
}

// AddBuckets 添加令牌桶并返回 MethodLimiter 自身，保留按方法计算的 Key
func (l MethodLimiter) AddBuckets(rules ...BucketRule) Face {
	l.Limiter.AddBuckets(rules...)
	return l
}

// Key 返回 "METHOD /route/:param"
func (l MethodLimiter) Key(c *gin.Context) string {
	return c.Request.Method + " " + c.FullPath()
}

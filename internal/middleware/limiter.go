package middleware

import (
	"math"
	"strconv"

	"github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// RateLimiter 令牌桶限流中间件，未配置令牌桶的路由不限流
// 被拒绝时返回 429 与 Retry-After
func RateLimiter(l limiter.Face) gin.HandlerFunc {
	return func(c *gin.Context) {
		bucket, ok := l.GetBucket(l.Key(c))
		if !ok {
			c.Next()
			return
		}

		if bucket.TakeAvailable(1) == 0 {
			if rate := bucket.Rate(); rate > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(1/rate))))
			}
			app.NewResponse(c).ToResponse(code.ErrorTooManyRequests)
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))

		c.Next()
	}
}

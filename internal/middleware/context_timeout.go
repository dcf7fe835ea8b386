package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// ContextTimeout sets a deadline on the request context, timeout <= 0 disables it
// ContextTimeout 为请求 context 设置截止时间，timeout <= 0 时不设置
// 处理器超时后仍未写响应时返回 ErrorOperationTimeout
func ContextTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			app.NewResponse(c).ToResponse(code.ErrorOperationTimeout.WithDetails(timeout.String()))
		}
	}
}

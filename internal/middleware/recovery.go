package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger 捕获处理器 panic，记录堆栈并返回 500
func RecoveryWithLogger(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			fields := []zap.Field{
				zap.String("router", c.Request.URL.Path),
				zap.String(logger.FieldMethod, c.Request.Method),
				zap.String("query", c.Request.URL.RawQuery),
				zap.String("ip", c.ClientIP()),
				zap.String(logger.FieldTraceID, GetTraceIDFromGin(c)),
				zap.String("stack", string(debug.Stack())),
			}
			var msg string
			if err, ok := r.(error); ok {
				msg = err.Error()
				fields = append(fields, zap.Error(err))
			} else {
				msg = fmt.Sprint(r)
				fields = append(fields, zap.String("panic", msg))
			}
			lg.Error("recovered from panic", fields...)

			app.NewResponse(c).ToResponse(code.ErrorServerInternal.WithDetails(msg))
			c.Abort()
		}()

		c.Next()
	}
}

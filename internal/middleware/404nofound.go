package middleware

import (
	"github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// NoFound 404 处理，详情中带上请求的方法与路径
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		app.NewResponse(c).ToResponse(code.ErrorNotFoundAPI.WithDetails(c.Request.Method + " " + c.Request.URL.Path))
		c.Abort()
	}
}

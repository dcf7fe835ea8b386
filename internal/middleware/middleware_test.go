package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haierkeys/fast-backup-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestTraceMiddleware(t *testing.T) {
	var fromCtx, fromGin string
	r := gin.New()
	r.Use(TraceMiddlewareWithConfig(true, ""))
	r.GET("/ping", func(c *gin.Context) {
		fromCtx = GetTraceID(c.Request.Context())
		fromGin = GetTraceIDFromGin(c)
	})

	w := serve(r, http.MethodGet, "/ping", nil)
	generated := w.Header().Get(DefaultTraceIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, fromCtx)
	assert.Equal(t, generated, fromGin)

	w = serve(r, http.MethodGet, "/ping", http.Header{DefaultTraceIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(DefaultTraceIDHeader))
	assert.Equal(t, "abc-123", fromCtx)
}

func TestTraceMiddleware_Disabled(t *testing.T) {
	var id string
	r := gin.New()
	r.Use(TraceMiddlewareWithConfig(false, "X-Request-ID"))
	r.GET("/ping", func(c *gin.Context) { id = GetTraceIDFromGin(c) })

	w := serve(r, http.MethodGet, "/ping", nil)
	assert.Empty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, id)
}

func TestRateLimiter(t *testing.T) {
	l := limiter.NewMethodLimiter().AddBuckets(limiter.BucketRule{
		Key:          "POST /api/backup",
		FillInterval: time.Hour,
		Capacity:     1,
		Quantum:      1,
	})
	r := gin.New()
	r.Use(RateLimiter(l))
	r.POST("/api/backup", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/backups", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/backup", nil).Code)
	w := serve(r, http.MethodPost, "/api/backup", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
	// 未配置令牌桶的路由不限流
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/backups", nil).Code)
	}
}

func TestRecoveryAndNoFound(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithLogger(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	r.NoRoute(NoFound())

	w := serve(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "kaboom"))

	w = serve(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContextTimeout(t *testing.T) {
	var deadline bool
	r := gin.New()
	r.Use(ContextTimeout(time.Minute))
	r.GET("/ping", func(c *gin.Context) { _, deadline = c.Request.Context().Deadline() })

	serve(r, http.MethodGet, "/ping", nil)
	assert.True(t, deadline)
}

func TestContextTimeout_Expired(t *testing.T) {
	r := gin.New()
	r.Use(ContextTimeout(time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := serve(r, http.MethodGet, "/slow", nil)
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}

func TestLangWithTranslator(t *testing.T) {
	uni := ut.New(en.New(), en.New(), zh.New())
	var locale string
	r := gin.New()
	r.Use(LangWithTranslator(uni))
	r.GET("/ping", func(c *gin.Context) {
		trans, _ := c.Get("trans")
		locale = trans.(ut.Translator).Locale()
	})

	serve(r, http.MethodGet, "/ping", http.Header{"Accept-Language": {"en;q=0.5,zh-CN"}})
	assert.Equal(t, "zh", locale)

	serve(r, http.MethodGet, "/ping?lang=fr", nil)
	assert.Equal(t, "en", locale)

	serve(r, http.MethodGet, "/ping", http.Header{"Lang": {"zh"}})
	assert.Equal(t, "zh", locale)
}

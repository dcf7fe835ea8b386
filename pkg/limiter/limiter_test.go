package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := NewMethodLimiter().AddBuckets(BucketRule{
		Key:          "POST /api/backup",
		FillInterval: time.Hour,
		Capacity:     2,
		Quantum:      1,
	})
	// 重复添加不会重置令牌桶
	l.AddBuckets(BucketRule{Key: "POST /api/backup", FillInterval: time.Second, Capacity: 100, Quantum: 100})

	var key string
	r := gin.New()
	r.POST("/api/backup", func(c *gin.Context) { key = l.Key(c) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/backup", nil))
	assert.Equal(t, "POST /api/backup", key)

	b, ok := l.GetBucket(key)
	require.True(t, ok)
	assert.Equal(t, int64(1), b.TakeAvailable(1))
	assert.Equal(t, int64(1), b.TakeAvailable(1))
	assert.Equal(t, int64(0), b.TakeAvailable(1))

	_, ok = l.GetBucket("GET /api/backups")
	assert.False(t, ok)
}

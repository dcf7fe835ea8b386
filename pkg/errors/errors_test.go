package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haierkeys/fast-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	wrapped := fmt.Errorf("restore: %w", code.ErrorBackupNotFound.WithDetails("backup_1_x"))
	e := FromError(wrapped)
	assert.Equal(t, code.ErrorBackupNotFound.Code(), e.Code)
	assert.Equal(t, []string{"backup_1_x"}, e.Details)
	assert.Equal(t, http.StatusOK, e.HTTPStatus())

	e = FromError(fmt.Errorf("drill: %w", context.DeadlineExceeded))
	assert.Equal(t, code.ErrorOperationTimeout.Code(), e.Code)
	assert.Equal(t, http.StatusRequestTimeout, e.HTTPStatus())

	e = FromError(fmt.Errorf("disk on fire"))
	assert.Equal(t, code.ErrorServerInternal.Code(), e.Code)
	assert.Empty(t, e.Details)
	assert.EqualError(t, e.Unwrap(), "disk on fire")
}

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/backup/x", nil)

	ErrorResponse(c, fmt.Errorf("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(500), body["code"])
	assert.Equal(t, false, body["status"])
	assert.Len(t, c.Errors, 1)
}

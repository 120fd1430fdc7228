package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, checks ...Check) (int, report) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group(""), nil, time.Now().Add(-90*time.Second), checks...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var rep report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	return w.Code, rep
}

func TestHealthOK(t *testing.T) {
	code, rep := serve(t, StoreCheck(device.NewMemoryStore()))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", rep.Status)
	assert.Equal(t, map[string]bool{"store": true}, rep.Checks)
	assert.Equal(t, "1m0s", rep.Uptime)
}

func TestHealthDegraded(t *testing.T) {
	down := Check{Name: "redis", Run: func(context.Context) error { return errors.New("refused") }}
	code, rep := serve(t, StoreCheck(device.NewMemoryStore()), down)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", rep.Status)
	assert.False(t, rep.Checks["redis"])
	assert.True(t, rep.Checks["store"])
}

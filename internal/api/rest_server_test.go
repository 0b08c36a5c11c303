package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/game"
	"github.com/annel0/voxelworld/internal/metrics"
	"github.com/annel0/voxelworld/internal/middleware"
)

type staticStatus game.Status

func (s staticStatus) Status() game.Status { return game.Status(s) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rs, err := NewRestServer(Config{})
	require.NoError(t, err)

	rec := get(t, rs.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.TraceHeader), "ответ снабжен trace-ID")
}

func TestStatusReportsWorld(t *testing.T) {
	rs, err := NewRestServer(Config{World: staticStatus{Tick: 42, Peers: 2, Active: 7, Stasis: 3}})
	require.NoError(t, err)

	rec := get(t, rs.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, uint64(42), body.Data.World.Tick)
	assert.Equal(t, 2, body.Data.World.Peers)
	assert.Equal(t, 7, body.Data.World.Active)
	assert.Positive(t, body.Data.Process.Goroutines)
	assert.NotEmpty(t, body.Data.Process.Uptime)
}

func TestStatusWithoutWorld(t *testing.T) {
	rs, err := NewRestServer(Config{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, rs.Handler(), "/status").Code)
	assert.Equal(t, http.StatusNotFound, get(t, rs.Handler(), "/nope").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	wm := metrics.NewWorld("server")
	require.NoError(t, wm.Register(reg))
	wm.Activated(3)

	rs, err := NewRestServer(Config{Registry: reg})
	require.NoError(t, err)
	get(t, rs.Handler(), "/health")

	rec := get(t, rs.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `voxel_world_chunks_activated_total{side="server"} 3`)
	assert.Contains(t, body, `admin_api_http_request_duration_seconds_count{method="GET",path="/health",status="200"} 1`)

	_, err = NewRestServer(Config{Registry: reg})
	assert.Error(t, err, "повторная регистрация HTTP-метрик в том же реестре")
}

func TestStartStop(t *testing.T) {
	rs, err := NewRestServer(Config{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, rs.Start())

	resp, err := http.Get("http://" + rs.Addr() + "/health")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rs.Stop(ctx))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 3с", formatUptime(123*time.Second))
	assert.Equal(t, "1ч 0м 1с", formatUptime(time.Hour+time.Second))
	assert.Equal(t, "1д 2ч 0м 0с", formatUptime(26*time.Hour))
}

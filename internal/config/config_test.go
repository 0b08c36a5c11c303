package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/game"
	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/network"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  udp_port: 5000
  tick_rate: 20
world:
  load_distance: 2
  lod_view_factor: 64
network:
  backend: kcp
  compression: zstd
  ack_interval: 500ms
  timeout: 3s
telemetry:
  enabled: true
  endpoint: collector:4318
  sample_ratio: 0.5
logging:
  console: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.GetUDPPort())
	assert.Equal(t, 20, cfg.Server.TickRate)
	assert.Equal(t, 2, cfg.World.LoadDistance)
	assert.Equal(t, float32(64), cfg.World.LODViewFactor)
	assert.Equal(t, 50, cfg.World.MaxProcess, "незаданное поле остается по умолчанию")

	ch := cfg.Channel()
	assert.Equal(t, network.ChannelKCP, ch.Type)
	assert.Equal(t, network.CompressionZstd, ch.Compression)
	assert.Equal(t, 500*time.Millisecond, ch.AckInterval)
	assert.Equal(t, 3*time.Second, ch.Timeout)
	assert.Equal(t, float64(10), ch.AdmitRate)

	assert.Equal(t, logging.DEBUG, cfg.LoggingOptions().ConsoleLevel)

	tr := cfg.Tracing()
	assert.Equal(t, "voxelworld", tr.ServiceName)
	assert.Equal(t, "collector:4318", tr.Endpoint)
	assert.Equal(t, 0.5, tr.SampleRatio)
}

func TestWorldConfigs(t *testing.T) {
	cfg := Default()
	assert.Equal(t, game.DefaultServerConfig(), cfg.ServerWorld(), "значения по умолчанию совпадают с миром")
	assert.Equal(t, game.DefaultClientConfig(), cfg.ClientWorld())

	path := writeConfig(t, "world:\n  spawn_point: [1, 2, 30]\n  processor_workers: 0\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 2, 30}, cfg.ServerWorld().SpawnPoint)
	assert.Equal(t, 0, cfg.ClientWorld().ProcessorWorkers)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "client:\n  view_distance: 3\n")
	t.Setenv("VOXEL_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Client.ViewDistance)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [1, 2"))
	assert.Error(t, err, "битый YAML")

	_, err = Load(writeConfig(t, "network:\n  backend: tcp\n"))
	assert.Error(t, err, "неизвестный транспорт")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.TickRate = 0
	cfg.World.MaxProcess = 0
	cfg.Network.Timeout = time.Second
	cfg.Network.AckInterval = 2 * time.Second
	cfg.Telemetry.SampleRatio = 2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_rate")
	assert.Contains(t, err.Error(), "max_process")
	assert.Contains(t, err.Error(), "ack_interval")
	assert.Contains(t, err.Error(), "sample_ratio")
}

func TestPortEnvFallback(t *testing.T) {
	t.Setenv("VOXEL_UDP_PORT", "6000")
	t.Setenv("VOXEL_METRICS_PORT", "bad")

	s := ServerConfig{}
	assert.Equal(t, 6000, s.GetUDPPort())
	assert.Equal(t, "0.0.0.0:7000", (&ServerConfig{Host: "0.0.0.0", UDPPort: 7000}).Addr())

	m := MetricsConfig{}
	assert.Equal(t, 2112, m.GetMetricsPort(), "некорректное значение окружения игнорируется")
}

func TestClientLocalAddr(t *testing.T) {
	c := Default().Client
	for i := 0; i < 1000; i++ {
		host, port, err := net.SplitHostPort(c.LocalAddr())
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", host)

		p, err := strconv.Atoi(port)
		require.NoError(t, err)
		require.GreaterOrEqual(t, p, c.BasePort, "порт не ниже базового")
		require.LessOrEqual(t, p, c.BasePort+255, "смещение не больше байта")
	}
}

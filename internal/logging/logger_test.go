package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{ConsoleLevel: WARN, Output: &buf})
	defer Configure(Options{ConsoleLevel: INFO})

	logger, err := NewLogger("network")
	require.NoError(t, err)

	logger.Info("скрыто %d", 1)
	logger.Warn("пакет %d отклонен", 7)

	out := buf.String()
	assert.NotContains(t, out, "скрыто")
	assert.Contains(t, out, "пакет 7 отклонен")
	assert.Contains(t, out, "[network]")
}

func TestLoggerFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	Configure(Options{ConsoleLevel: ERROR, FileLevel: DEBUG, File: true, Dir: dir, Output: &buf})
	defer Configure(Options{ConsoleLevel: INFO})

	logger, err := NewLogger("world")
	require.NoError(t, err)
	logger.Debug("чанк %s", "готов")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "повторное закрытие безопасно")

	files, err := filepath.Glob(filepath.Join(dir, "world_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [world] чанк готов")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WARN, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestRegistryCachesLoggers(t *testing.T) {
	r := &Registry{loggers: make(map[string]*Logger)}
	a := r.Get("cache-test")
	b := r.Get("cache-test")
	assert.Same(t, a, b)
	assert.Equal(t, []string{"cache-test"}, r.Components())
	assert.NoError(t, r.SetLevel("cache-test", DEBUG, DEBUG))
	assert.Error(t, r.SetLevel("missing", DEBUG, DEBUG))

	require.NoError(t, r.Close())
	assert.Empty(t, r.Components())
	assert.NotSame(t, a, r.Get("cache-test"), "после закрытия логгер создается заново")
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	assert.Contains(t, HexDump([]byte{0xde, 0xad}), "de ad")
}

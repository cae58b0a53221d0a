package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { Logger = nil })

	require.NoError(t, Init("development", false))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("production", false))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))

	require.NoError(t, Init("development", true))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))
	Sync()
}

func TestGetBeforeInit(t *testing.T) {
	Logger = nil
	assert.NotNil(t, Get())
	Sync()
}

func TestInitToFile(t *testing.T) {
	t.Cleanup(func() { Logger = nil })
	path := filepath.Join(t.TempDir(), "orbit.log")

	require.NoError(t, Init("development", false, path))
	Get().Info("written to file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.NotContains(t, string(data), "\x1b[")
}

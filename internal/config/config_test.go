package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger("debug", FormatConsole))
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, InitLogger("warn", FormatJSON))
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zapcore.WarnLevel))
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger("loud", FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("EXPLORER_TEST_A=from-file\nEXPLORER_TEST_B=from-file\n"), 0o644))

	t.Setenv("EXPLORER_TEST_B", "preset")
	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { os.Unsetenv("EXPLORER_TEST_A") })

	assert.Equal(t, "from-file", os.Getenv("EXPLORER_TEST_A"))
	assert.Equal(t, "preset", os.Getenv("EXPLORER_TEST_B"))
}

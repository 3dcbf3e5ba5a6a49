package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, workspace, content string) {
	t.Helper()
	path := filepath.Join(workspace, FileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TOOLSMITH_TOOLS_DIR", "/env/tools")
	t.Setenv("TOOLSMITH_LOG_LEVEL", "warn")
	t.Setenv("TOOLSMITH_MOCK", "1")

	workspace := t.TempDir()
	writeConfig(t, workspace, "tools_dir: /file/tools\nlogging:\n  level: debug\n")

	cfg, err := Load(workspace)
	require.NoError(t, err)

	assert.Equal(t, "/env/tools", cfg.ToolsDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Mock)
}

func TestEnvMockRequiresExactValue(t *testing.T) {
	t.Setenv("TOOLSMITH_MOCK", "yes")

	workspace := t.TempDir()
	writeConfig(t, workspace, "mock: false\n")

	cfg, err := Load(workspace)
	require.NoError(t, err)
	assert.False(t, cfg.Mock, "only TOOLSMITH_MOCK=1 enables mock mode")
}

func TestEnvIgnoredWhenUnset(t *testing.T) {
	t.Setenv("TOOLSMITH_TOOLS_DIR", "")

	workspace := t.TempDir()
	writeConfig(t, workspace, "tools_dir: /file/tools\n")

	cfg, err := Load(workspace)
	require.NoError(t, err)
	assert.Equal(t, "/file/tools", cfg.ToolsDir)
}

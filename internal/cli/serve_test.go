package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServeConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botloom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\ndb: /var/lib/botloom.db\nmetrics: false\n"), 0o644))

	cfg, err := loadServeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/var/lib/botloom.db", cfg.Database)
	require.NotNil(t, cfg.Metrics)
	assert.False(t, *cfg.Metrics)
}

func TestLoadServeConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botloom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o644))

	cfg, err := loadServeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Empty(t, cfg.Database)
	assert.Nil(t, cfg.Metrics, "absent metrics key means enabled")
}

func TestLoadServeConfigMissing(t *testing.T) {
	_, err := loadServeConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadServeConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botloom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed"), 0o644))

	_, err := loadServeConfig(path)
	require.Error(t, err)
}

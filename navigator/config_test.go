package navigator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patootie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/p.db
log_level: debug
fetch:
  backend: headless
  timeout: 45s
  block_resources: [images, fonts]
render:
  page_size: 5
`), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/p.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "headless", cfg.Fetch.Backend)
	assert.Equal(t, 45*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, []string{"images", "fonts"}, cfg.Fetch.BlockResources)
	assert.Equal(t, 5, cfg.Render.PageSize)

	cfg.defaults()
	assert.Equal(t, 5, cfg.Render.PageSize, "set values survive defaults")
	assert.Equal(t, 600, cfg.Render.BodyChars)
	assert.Equal(t, int64(10<<20), cfg.Fetch.MaxBytes)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch: [not, a, map]"), 0o644))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.defaults()
	assert.Equal(t, "parsers.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, "patootie", filepath.Base(filepath.Dir(cfg.DBPath)))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "http", cfg.Fetch.Backend)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 50, cfg.Normalize.MinTextLen)
	assert.Equal(t, 3, cfg.Normalize.MinItems)
	assert.Equal(t, 10, cfg.Render.PageSize)
}

func TestNew_UnknownBackendIsUsageError(t *testing.T) {
	cfg := &Config{DBPath: filepath.Join(t.TempDir(), "p.db")}
	cfg.Fetch.Backend = "gopher"
	_, err := New(cfg, quietLogger())
	assert.ErrorIs(t, err, ErrUsage)
}

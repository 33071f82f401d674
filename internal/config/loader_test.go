package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7360, cfg.Server.Port)
	assert.Equal(t, 50, cfg.BigQuery.TableListBudget)
	assert.Equal(t, time.Second, cfg.BigQuery.TableListWindow)
	assert.Equal(t, 0, cfg.BigQuery.MaxResultRows)
	assert.True(t, cfg.History.Enabled)
	assert.True(t, cfg.Watch.Enabled)
	assert.NotEmpty(t, cfg.Data.Dir)

	require.NoError(t, NewValidator().Validate(cfg))
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BEEQUEN_LOG_LEVEL", "debug")
	t.Setenv("BEEQUEN_SERVER_PORT", "9000")
	t.Setenv("BEEQUEN_BIGQUERY_TABLE_LIST_WINDOW", "250ms")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.BigQuery.TableListWindow)
}

func TestLoader_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log:
  level: warn
data:
  dir: ` + dir + `
bigquery:
  location: EU
  max_result_rows: 1000
history:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, dir, cfg.Data.Dir)
	assert.Equal(t, "EU", cfg.BigQuery.Location)
	assert.Equal(t, 1000, cfg.BigQuery.MaxResultRows)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, path, loader.ConfigFile())

	assert.Equal(t, filepath.Join(dir, "projects.json"), cfg.ProjectsPath())
	assert.Equal(t, filepath.Join(dir, "setting.json"), cfg.SettingPath())
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.HistoryPath())
	assert.Equal(t, filepath.Join(dir, "beequen.log"), cfg.LogPath())
}

func TestLoader_WorkingDirOverridesUserConfig(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(work)

	userDir := filepath.Join(home, ".config", "beequen")
	require.NoError(t, os.MkdirAll(userDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"),
		[]byte("log:\n  level: debug\nserver:\n  port: 8000\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(work, ".beequen.yaml"),
		[]byte("server:\n  port: 8100\n"), 0o600))

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8100, cfg.Server.Port)
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	_, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestDefaultConfigYAML_Loads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(DefaultConfigYAML), 0o600))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 7360, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.BigQuery.TableListWindow)
}

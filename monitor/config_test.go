package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("EXCLUDE_RESULTS_ALERTS", "")
	t.Setenv("HEADLINE_MONITOR_STATE_DIR", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultSourceURL, cfg.Source.URL)
	assert.Equal(t, time.Minute, cfg.Schedule.Interval.Std())
	assert.Equal(t, 100, cfg.State.ArchiveSize)
	assert.False(t, cfg.Telegram.Enabled())
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, IST, loc)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  url: https://example.com/live
  fetch_timeout: 20s
schedule:
  interval: 2m
state:
  dir: /var/lib/headlines
  archive_size: 250
telegram:
  token: file-token
  chat_id: "-100123"
filters:
  exclude_results: true
log:
  level: debug
  format: json
`), 0o644))
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("EXCLUDE_RESULTS_ALERTS", "")
	t.Setenv("HEADLINE_MONITOR_STATE_DIR", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/live", cfg.Source.URL)
	assert.Equal(t, 20*time.Second, cfg.Source.FetchTimeout.Std())
	assert.Equal(t, 2*time.Minute, cfg.Schedule.Interval.Std())
	assert.Equal(t, time.Minute, cfg.Schedule.FailureCooldown.Std(), "unset keys keep defaults")
	assert.Equal(t, 250, cfg.State.ArchiveSize)
	assert.Equal(t, "env-token", cfg.Telegram.Token, "environment wins over the file")
	assert.Equal(t, "-100123", cfg.Telegram.ChatID)
	assert.True(t, cfg.Filters.ExcludeResults)
	assert.Equal(t, "json", cfg.Log.Format)

	rc := cfg.RunnerConfig()
	assert.Equal(t, 2*time.Minute, rc.Interval)
	assert.True(t, rc.ExcludeResults)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone = "UTC"

[schedule]
interval = "90s"

[state]
dir = "/tmp/state"
`), 0o644))
	t.Setenv("HEADLINE_MONITOR_STATE_DIR", "/srv/state")
	t.Setenv("EXCLUDE_RESULTS_ALERTS", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Schedule.Interval.Std())
	assert.Equal(t, "/srv/state", cfg.State.Dir)
	assert.True(t, cfg.Filters.ExcludeResults)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadConfig_BadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schedule:\n  interval: soon\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)

	t.Setenv("EXCLUDE_RESULTS_ALERTS", "maybe")
	_, err = LoadConfig("")
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

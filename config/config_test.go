package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_cash: 100.0
default_stop_loss: 2.5
extra_tickers: ["^RUT", "IWO"]
email: ops@example.com
webhook_url: https://hooks.example.com/x
run_time: "09:30"
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cfg.DefaultCash)
	assert.Equal(t, 2.5, cfg.DefaultStopLoss)
	assert.Equal(t, []string{"^RUT", "IWO"}, cfg.ExtraTickers)
	assert.Equal(t, "ops@example.com", cfg.Email)
	assert.Equal(t, "09:30", cfg.RunTime)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"default_cash": 50, "run_time": "18:00"}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.DefaultCash)
	assert.Equal(t, "18:00", cfg.RunTime)
}

func TestLoadFromFileMissingUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateRunTime(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.RunTime = "25:99"
	assert.Error(t, cfg.Validate())

	cfg.RunTime = "23:59"
	assert.NoError(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		DefaultCash:     250,
		DefaultStopLoss: 1.5,
		ExtraTickers:    []string{"XBI"},
		RunTime:         "10:00",
	}
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

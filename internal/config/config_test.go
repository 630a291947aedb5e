package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/evaluation.db", cfg.Database.Path)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.True(t, cfg.Sweep.RunOnStart)
	assert.Equal(t, 20.0, cfg.Evaluation.Scale)
	assert.Equal(t, 11.0, cfg.Evaluation.PassThreshold)
	assert.False(t, cfg.Lark.Enabled)
	assert.Equal(t, "user_id", cfg.Lark.ReceiveIDType)
	assert.Equal(t, "staff-evaluation", cfg.Logger.Service)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  mode: debug
database:
  path: /tmp/eval.db
  busy_timeout: 2s
sweep:
  interval: 30s
  batch_size: 50
  concurrency: 2
evaluation:
  pass_threshold: 12
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "/tmp/eval.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, 50, cfg.Sweep.BatchSize)
	assert.Equal(t, 12.0, cfg.Evaluation.PassThreshold)
}

func TestLoad_EnvironmentCredentials(t *testing.T) {
	t.Setenv("LARK_ENABLED", "true")
	t.Setenv("LARK_APP_ID", "cli_test")
	t.Setenv("LARK_APP_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Lark.Enabled)
	assert.Equal(t, "cli_test", cfg.Lark.AppID)
	assert.Equal(t, "secret", cfg.Lark.AppSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults pass", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"lark enabled without id", func(c *Config) { c.Lark.Enabled = true }, "lark.app_id"},
		{"lark enabled without secret", func(c *Config) {
			c.Lark.Enabled = true
			c.Lark.AppID = "cli"
		}, "lark.app_secret"},
		{"zero interval", func(c *Config) { c.Sweep.Interval = 0 }, "sweep.interval"},
		{"zero concurrency", func(c *Config) { c.Sweep.Concurrency = 0 }, "sweep.concurrency"},
		{"threshold above scale", func(c *Config) { c.Evaluation.PassThreshold = 21 }, "evaluation.pass_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, cfg.Sweep.BatchSize, cc.Sweep.BatchSize)
	assert.Equal(t, cfg.Evaluation.PassThreshold, cc.Evaluation.PassThreshold)
	assert.NoError(t, cc.Validate())
}

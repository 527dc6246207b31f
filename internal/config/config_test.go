// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/pkg/errutil"
)

// isolate points XDG lookups at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const fileConfig = `
log:
  level: warn
  format: text
metrics:
  addr: "127.0.0.1:9100"
discovery:
  enabled: true
  system_directory: /opt/intentd/plugins
  use_priority_resolver: true
  suppress_substituted: true
  intent_handlers:
    "core:look": fancy-look
  additional_directories:
    - path: /srv/extra
      system: true
`

func TestDefault(t *testing.T) {
	home := isolate(t)

	cfg := Default()

	assert.True(t, cfg.Discovery.Enabled)
	assert.True(t, cfg.Discovery.UsePriorityResolver)
	assert.True(t, cfg.Discovery.LoadSystemPlugins)
	assert.True(t, cfg.Discovery.LoadUserPlugins)
	assert.Equal(t, "plugins", cfg.Discovery.SystemDirectory)
	assert.Equal(t, filepath.Join(home, "data", "intentd", "plugins"), cfg.Discovery.UserDirectory)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	cfg, err := Load(writeConfig(t, fileConfig), nil)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, "/opt/intentd/plugins", cfg.Discovery.SystemDirectory)
	assert.True(t, cfg.Discovery.SuppressSubstituted)
	assert.Equal(t, map[string]string{"core:look": "fancy-look"}, cfg.Discovery.IntentHandlers)
	assert.Equal(t, []plugin.Directory{{Path: "/srv/extra", System: true}}, cfg.Discovery.AdditionalDirectories)
	assert.True(t, cfg.Discovery.LoadUserPlugins, "keys absent from the file keep their defaults")
}

func TestLoad_XDGConfigFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, "config", "intentd")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: error\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)

	_, err := Load(writeConfig(t, "log: [unclosed"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv("INTENTD_LOG_LEVEL", "debug")
	t.Setenv("INTENTD_DISCOVERY_USE_PRIORITY_RESOLVER", "false")
	t.Setenv("INTENTD_DISCOVERY_INTENT_HANDLERS", "core:look=env-look,core:say=env-say")

	cfg, err := Load(writeConfig(t, fileConfig), nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Discovery.UsePriorityResolver)
	assert.Equal(t, map[string]string{
		"core:look": "env-look",
		"core:say":  "env-say",
	}, cfg.Discovery.IntentHandlers)
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("INTENTD_DISCOVERY_ENABLED", "maybe")

	_, err := Load("", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_ChangedFlagsOverrideEverything(t *testing.T) {
	isolate(t)
	t.Setenv("INTENTD_LOG_LEVEL", "debug")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-level=error", "--linear", "--user-plugins=/home/u/plugins"}))

	cfg, err := Load(writeConfig(t, fileConfig), fs)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.False(t, cfg.Discovery.UsePriorityResolver)
	assert.Equal(t, "/home/u/plugins", cfg.Discovery.UserDirectory)
	assert.Equal(t, "text", cfg.Log.Format, "unchanged flags do not override the file")
	assert.Equal(t, "/opt/intentd/plugins", cfg.Discovery.SystemDirectory)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"empty override id", func(c *Config) { c.Discovery.IntentHandlers = map[string]string{"core:look": " "} }},
		{"empty override action", func(c *Config) { c.Discovery.IntentHandlers = map[string]string{"": "look"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeInvalid)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())

	cfg.Discovery.Debug = true
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

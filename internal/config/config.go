// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads intentd configuration. Layers apply in order:
// defaults, the YAML config file, INTENTD_* environment variables, then
// command-line flags the user actually set.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/intentd/internal/discovery"
	"github.com/holomush/intentd/internal/logging"
	"github.com/holomush/intentd/internal/xdg"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "INTENTD_"

// CodeInvalid marks configuration that failed to load or validate.
const CodeInvalid = "CONFIG_INVALID"

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" env:"LEVEL"`
	Format string `koanf:"format" yaml:"format" env:"FORMAT"`
}

// MetricsConfig configures the observability server. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr" env:"ADDR"`
}

// Config is the complete intentd configuration.
type Config struct {
	Discovery discovery.Config `koanf:"discovery" yaml:"discovery" envPrefix:"DISCOVERY_"`
	Log       LogConfig        `koanf:"log" yaml:"log" envPrefix:"LOG_"`
	Metrics   MetricsConfig    `koanf:"metrics" yaml:"metrics" envPrefix:"METRICS_"`
}

// Default returns the built-in defaults. The user plugin directory is the
// XDG data plugins directory when it can be resolved.
func Default() Config {
	cfg := Config{
		Discovery: discovery.DefaultConfig(),
		Log:       LogConfig{Level: "info", Format: "json"},
	}
	cfg.Discovery.SystemDirectory = "plugins"
	if dir, err := xdg.PluginsDir(); err == nil {
		cfg.Discovery.UserDirectory = dir
	}
	return cfg
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"metrics-addr":     "metrics.addr",
	"system-plugins":   "discovery.system_directory",
	"user-plugins":     "discovery.user_directory",
	"linear":           "discovery.use_priority_resolver",
	"debug-resolution": "discovery.debug",
}

// RegisterFlags adds the flags Load understands to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")
	flags.String("metrics-addr", "", "observability listen address, empty to disable")
	flags.String("system-plugins", "", "system plugin directory")
	flags.String("user-plugins", "", "user plugin directory")
	flags.Bool("linear", false, "resolve by first structural match instead of priority")
	flags.Bool("debug-resolution", false, "log every resolution decision")
}

// Load builds a Config. An empty path falls back to the XDG config file,
// which may be absent; an explicit path must exist. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(&cfg, path, explicit); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, oops.Code(CodeInvalid).In("config").Wrapf(err, "parse environment")
	}

	if flags != nil {
		if err := loadFlags(&cfg, flags); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(cfg *Config, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code(CodeInvalid).In("config").With("path", path).Wrapf(err, "read config file")
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code(CodeInvalid).In("config").With("path", path).Wrapf(err, "parse config file")
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return oops.Code(CodeInvalid).In("config").With("path", path).Wrapf(err, "decode config file")
	}
	return nil
}

func loadFlags(cfg *Config, flags *pflag.FlagSet) error {
	k := koanf.New(".")
	provider := posflag.ProviderWithFlag(flags, ".", nil, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		val := posflag.FlagVal(flags, f)
		if f.Name == "linear" {
			linear, _ := val.(bool)
			return key, !linear
		}
		return key, val
	})
	if err := k.Load(provider, nil); err != nil {
		return oops.Code(CodeInvalid).In("config").Wrapf(err, "read flags")
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return oops.Code(CodeInvalid).In("config").Wrapf(err, "decode flags")
	}
	return nil
}

// Validate rejects unknown log settings and override entries without a
// plugin id.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code(CodeInvalid).In("config").With("log.level", c.Log.Level).Wrap(err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code(CodeInvalid).In("config").
			With("log.format", c.Log.Format).
			Errorf("log format must be json or text")
	}
	for action, id := range c.Discovery.IntentHandlers {
		if strings.TrimSpace(action) == "" || strings.TrimSpace(id) == "" {
			return oops.Code(CodeInvalid).In("config").
				With("action", action).
				With("plugin_id", id).
				Errorf("intent handler override needs an action and a plugin id")
		}
	}
	return nil
}

// LogLevel returns the configured level, lowered to debug when resolution
// debugging is on.
func (c *Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if c.Discovery.Debug && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return level
}

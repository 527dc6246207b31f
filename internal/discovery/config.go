// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package discovery

import "github.com/holomush/intentd/internal/plugin"

// Config controls plugin discovery. It is supplied by the embedding
// process, usually from the intentd config file.
type Config struct {
	// Enabled turns discovery on. When false Initialize is a no-op and every
	// lookup misses.
	Enabled bool `koanf:"enabled" yaml:"enabled" env:"ENABLED"`

	SystemDirectory string `koanf:"system_directory" yaml:"system_directory" env:"SYSTEM_DIRECTORY"`
	UserDirectory   string `koanf:"user_directory" yaml:"user_directory" env:"USER_DIRECTORY"`
	// AdditionalDirectories are scanned after the system and user
	// directories, each with an explicit classification.
	AdditionalDirectories []plugin.Directory `koanf:"additional_directories" yaml:"additional_directories"`

	LoadSystemPlugins bool `koanf:"load_system_plugins" yaml:"load_system_plugins" env:"LOAD_SYSTEM_PLUGINS"`
	LoadUserPlugins   bool `koanf:"load_user_plugins" yaml:"load_user_plugins" env:"LOAD_USER_PLUGINS"`

	// UsePriorityResolver selects override/priority resolution. When false
	// the first loaded plugin declaring the action wins.
	UsePriorityResolver bool `koanf:"use_priority_resolver" yaml:"use_priority_resolver" env:"USE_PRIORITY_RESOLVER"`

	// IntentHandlers are operator overrides: action -> plugin id.
	IntentHandlers map[string]string `koanf:"intent_handlers" yaml:"intent_handlers" env:"INTENT_HANDLERS" envKeyValSeparator:"="`

	// SuppressSubstituted keeps substituted plugins from winning resolution
	// except through an override.
	SuppressSubstituted bool `koanf:"suppress_substituted" yaml:"suppress_substituted" env:"SUPPRESS_SUBSTITUTED"`

	// Debug logs every resolution decision.
	Debug bool `koanf:"debug" yaml:"debug" env:"DEBUG"`
}

// DefaultConfig returns discovery enabled for both kinds of plugins with
// priority resolution.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		LoadSystemPlugins:   true,
		LoadUserPlugins:     true,
		UsePriorityResolver: true,
	}
}

// Directories returns the scan order: system, user, then additional.
func (c Config) Directories() []plugin.Directory {
	var dirs []plugin.Directory
	if c.SystemDirectory != "" {
		dirs = append(dirs, plugin.Directory{Path: c.SystemDirectory, System: true})
	}
	if c.UserDirectory != "" {
		dirs = append(dirs, plugin.Directory{Path: c.UserDirectory, System: false})
	}
	return append(dirs, c.AdditionalDirectories...)
}

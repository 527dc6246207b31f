// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package plugin discovers plugin manifests on disk and loads the handlers
// they describe.
package plugin

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Runtime identifies how a plugin's entry point is turned into a handler.
type Runtime string

// Runtimes supported by the loader.
const (
	RuntimeLua     Runtime = "lua"
	RuntimeBinary  Runtime = "binary"
	RuntimeNative  Runtime = "native"
	RuntimeBuiltin Runtime = "builtin"
)

// ManifestFiles lists the manifest file names looked up in each plugin
// folder, in order of preference.
var ManifestFiles = []string{"manifest.json", "plugin.yaml", "plugin.yml"}

// IntentMapping is the per-action priority entry of a manifest.
type IntentMapping struct {
	Priority float64 `json:"priority" yaml:"priority"`
	Enabled  bool    `json:"enabled" yaml:"enabled"`
}

// Manifest is the declarative descriptor of a discoverable plugin.
type Manifest struct {
	ID            string                   `json:"id" yaml:"id" jsonschema:"minLength=1,maxLength=64"`
	Name          string                   `json:"name,omitempty" yaml:"name,omitempty"`
	Description   string                   `json:"description,omitempty" yaml:"description,omitempty"`
	Version       string                   `json:"version,omitempty" yaml:"version,omitempty"`
	Requires      string                   `json:"requires,omitempty" yaml:"requires,omitempty"`
	Runtime       Runtime                  `json:"runtime,omitempty" yaml:"runtime,omitempty" jsonschema:"enum=lua,enum=binary,enum=native,enum=builtin"`
	EntryPoint    string                   `json:"entryPoint" yaml:"entryPoint" jsonschema:"minLength=1"`
	Enabled       *bool                    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Substitutes   []string                 `json:"substitutes,omitempty" yaml:"substitutes,omitempty"`
	IntentMapping map[string]IntentMapping `json:"intentMapping,omitempty" yaml:"intentMapping,omitempty"`
	Capabilities  []string                 `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Config        map[string]any           `json:"config,omitempty" yaml:"config,omitempty"`
}

// maxIDLength is the maximum allowed length for plugin ids.
const maxIDLength = 64

// idPattern is the recommended id shape: a lowercase letter followed by
// lowercase letters, digits, or hyphens, not ending with a hyphen. It is a
// lint, not a load requirement.
var idPattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if len(m.ID) > maxIDLength {
		return fmt.Errorf("id must be %d characters or less, got %d", maxIDLength, len(m.ID))
	}
	if m.EntryPoint == "" {
		return fmt.Errorf("entryPoint is required")
	}

	if m.Requires != "" {
		if _, err := semver.NewConstraint(m.Requires); err != nil {
			return fmt.Errorf("requires %q is not a valid version constraint: %w", m.Requires, err)
		}
	}

	switch m.EffectiveRuntime() {
	case RuntimeLua, RuntimeBinary, RuntimeNative:
		if filepath.IsAbs(m.EntryPoint) || escapesDir(m.EntryPoint) {
			return fmt.Errorf("entryPoint %q must be a path inside the plugin directory", m.EntryPoint)
		}
	case RuntimeBuiltin:
	default:
		return fmt.Errorf("runtime must be one of lua, binary, native, builtin, got %q", m.Runtime)
	}

	for action := range m.IntentMapping {
		if action == "" {
			return fmt.Errorf("intentMapping contains an empty action")
		}
	}

	for _, id := range m.Substitutes {
		if id == "" {
			return fmt.Errorf("substitutes contains an empty id")
		}
	}

	return nil
}

// Lint reports conventions a manifest should follow but that do not stop it
// from loading.
func (m *Manifest) Lint() []string {
	var warnings []string
	if !idPattern.MatchString(m.ID) {
		warnings = append(warnings, fmt.Sprintf("id %q should start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.ID))
	}
	if m.Version != "" {
		if _, err := semver.StrictNewVersion(m.Version); err != nil {
			warnings = append(warnings, fmt.Sprintf("version %q is not a strict semantic version", m.Version))
		}
	}
	return warnings
}

// IsEnabled reports whether the manifest opts in to loading.
// A manifest without an enabled field is treated as disabled.
func (m *Manifest) IsEnabled() bool {
	return m.Enabled != nil && *m.Enabled
}

// EffectiveRuntime returns the declared runtime, or infers one from the
// entry point's extension when none is declared.
func (m *Manifest) EffectiveRuntime() Runtime {
	if m.Runtime != "" {
		return m.Runtime
	}
	switch strings.ToLower(filepath.Ext(m.EntryPoint)) {
	case ".lua":
		return RuntimeLua
	case ".so":
		return RuntimeNative
	default:
		return RuntimeBinary
	}
}

// Mapping returns the intentMapping entry for action, if declared.
func (m *Manifest) Mapping(action string) (IntentMapping, bool) {
	mapping, ok := m.IntentMapping[action]
	return mapping, ok
}

func escapesDir(p string) bool {
	clean := path.Clean(filepath.ToSlash(p))
	return clean == ".." || strings.HasPrefix(clean, "../")
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/intentd/internal/plugin"
)

func TestGenerateSchema(t *testing.T) {
	data, err := plugin.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, plugin.SchemaID, schema["$id"])
	assert.Equal(t, "intentd Plugin Manifest", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"id", "entryPoint", "enabled", "substitutes", "intentMapping", "config", "capabilities"} {
		assert.Contains(t, props, field)
	}

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"id", "entryPoint"}, required)
}

func TestValidateSchema_Valid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"json", `{"id": "p1", "entryPoint": "main.lua", "enabled": true,
  "intentMapping": {"chat:send": {"priority": 10, "enabled": true}},
  "config": {"anything": [1, 2, 3]}}`},
		{"yaml", `
id: p2
version: 1.0.0
entryPoint: bin/p2
runtime: binary
enabled: false
substitutes: [legacy-search]
`},
		{"loose id and version", `{"id": "legacy_Search", "version": "1.0", "entryPoint": "main.lua",
  "intentMapping": {"chat:send": {"priority": -2.5, "enabled": true}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, plugin.ValidateSchema([]byte(tt.data)))
		})
	}
}

func TestValidateSchema_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing id", `{"entryPoint": "main.lua"}`},
		{"missing entry point", `{"id": "p1"}`},
		{"id too long", `{"id": "` + strings.Repeat("a", 65) + `", "entryPoint": "main.lua"}`},
		{"unknown field", `{"id": "p1", "entryPoint": "main.lua", "type": "lua"}`},
		{"unknown runtime", `{"id": "p1", "entryPoint": "main.lua", "runtime": "wasm"}`},
		{"priority wrong type", `{"id": "p1", "entryPoint": "main.lua", "intentMapping": {"a:b": {"priority": "high", "enabled": true}}}`},
		{"mapping missing enabled", `{"id": "p1", "entryPoint": "main.lua", "intentMapping": {"a:b": {"priority": 1}}}`},
		{"enabled wrong type", `{"id": "p1", "entryPoint": "main.lua", "enabled": "yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := plugin.ValidateSchema([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestValidateSchema_EmptyAndMalformed(t *testing.T) {
	assert.Error(t, plugin.ValidateSchema(nil))
	assert.Error(t, plugin.ValidateSchema([]byte("{not json")))
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, plugin.FormatSchemaError(nil))
	assert.Equal(t, "missing id", plugin.FormatSchemaError(errors.New("schema validation failed: missing id")))
	assert.Equal(t, "other", plugin.FormatSchemaError(errors.New("other")))
}

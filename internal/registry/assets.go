// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AssetLoader loads the configuration and character files a handler
// points at. Paths are absolute.
type AssetLoader interface {
	LoadConfig(ctx context.Context, path string) (map[string]any, error)
	LoadCharacters(ctx context.Context, paths []string) ([]string, error)
}

// FileAssetLoader reads assets from disk. Config files may be YAML or JSON.
// A character file is a YAML or JSON document whose id field names the
// character; files without one are named after the file.
type FileAssetLoader struct{}

// LoadConfig decodes the file at path into a map.
func (FileAssetLoader) LoadConfig(_ context.Context, path string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// LoadCharacters returns the ids of the characters defined in paths. It
// stops at the first unreadable file.
func (FileAssetLoader) LoadCharacters(_ context.Context, paths []string) ([]string, error) {
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Clean(p))
		if err != nil {
			return ids, fmt.Errorf("read character: %w", err)
		}
		var doc struct {
			ID string `yaml:"id"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return ids, fmt.Errorf("parse character %s: %w", p, err)
		}
		if doc.ID == "" {
			doc.ID = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/intentd/pkg/intent"
)

// Helper functions for creating test fixtures with secure permissions.
func mkdirAll(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o750))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

// writeManifest writes root/folder/manifest.json from m and returns the folder.
func writeManifest(t *testing.T, root, folder string, m map[string]any) string {
	t.Helper()
	dir := filepath.Join(root, folder)
	mkdirAll(t, dir)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "manifest.json"), data)
	return dir
}

// builtinManifest returns an enabled builtin manifest using the named factory.
func builtinManifest(id, factory string) map[string]any {
	return map[string]any{
		"id":         id,
		"runtime":    "builtin",
		"entryPoint": factory,
		"enabled":    true,
	}
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

type stubHandler struct {
	id          string
	intents     []string
	initErr     error
	shutdownErr error
	initCalls   int
	shutdownLog *[]string
	env         intent.Env
}

func (s *stubHandler) SupportedIntents() []string { return s.intents }

func (s *stubHandler) Execute(_ context.Context, in intent.Intent, _ intent.ExecContext) (any, error) {
	return s.id + ":" + in.Action, nil
}

func (s *stubHandler) Initialize(_ context.Context) error {
	s.initCalls++
	return s.initErr
}

func (s *stubHandler) Shutdown(_ context.Context) error {
	if s.shutdownLog != nil {
		*s.shutdownLog = append(*s.shutdownLog, s.id)
	}
	return s.shutdownErr
}

// stubFactory returns a factory producing a stubHandler for intents.
func stubFactory(intents ...string) intent.Factory {
	return func(env intent.Env) (intent.Handler, error) {
		return &stubHandler{id: env.ID, intents: intents, env: env}, nil
	}
}

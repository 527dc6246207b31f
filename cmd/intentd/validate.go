// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/intentd/internal/plugin"
)

// manifestCheck is the validation outcome for one plugin folder.
type manifestCheck struct {
	Dir      string
	File     string
	ID       string
	Warnings []string
	Error    error
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [plugin-root...]",
		Short: "Validate plugin manifests without loading them",
		Long: `Check every plugin folder under the given roots against the manifest
schema, then against the manifest rules. Naming conventions that do not
block loading are reported as warnings. Defaults to the configured
plugin directories.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				for _, d := range cfg.Discovery.Directories() {
					roots = append(roots, d.Path)
				}
			}

			var checks []manifestCheck
			for _, root := range roots {
				found, err := checkRoot(root)
				if err != nil {
					return err
				}
				checks = append(checks, found...)
			}
			return reportChecks(cmd.OutOrStdout(), checks)
		},
	}
}

// checkRoot validates every immediate subfolder of root that has a
// manifest. A missing root yields no checks.
func checkRoot(root string) ([]manifestCheck, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, oops.In("cli").With("dir", root).Wrapf(err, "read plugin root")
	}

	var checks []manifestCheck
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		for _, name := range plugin.ManifestFiles {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path) //nolint:gosec // path is built from ReadDir entries and fixed file names
			if err != nil {
				continue
			}
			checks = append(checks, checkManifest(dir, path, data))
			break
		}
	}
	return checks, nil
}

func checkManifest(dir, path string, data []byte) manifestCheck {
	check := manifestCheck{Dir: dir, File: path}
	if err := plugin.ValidateSchema(data); err != nil {
		check.Error = errors.New(plugin.FormatSchemaError(err))
		return check
	}
	m, err := plugin.ParseManifest(data)
	if err != nil {
		check.Error = err
		return check
	}
	check.ID = m.ID
	check.Warnings = m.Lint()
	if m.EffectiveRuntime() != plugin.RuntimeBuiltin {
		entry := filepath.Join(dir, m.EntryPoint)
		if _, err := os.Stat(entry); err != nil {
			check.Error = fmt.Errorf("entry point %s: %w", m.EntryPoint, err)
		}
	}
	return check
}

func reportChecks(w io.Writer, checks []manifestCheck) error {
	failed := 0
	for _, c := range checks {
		if c.Error != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", c.File, c.Error)
			continue
		}
		fmt.Fprintf(w, "ok   %s (%s)\n", c.File, c.ID)
		for _, warning := range c.Warnings {
			fmt.Fprintf(w, "warn %s: %s\n", c.File, warning)
		}
	}
	fmt.Fprintf(w, "%d manifest(s), %d invalid\n", len(checks), failed)
	if failed > 0 {
		return oops.In("cli").With("invalid", failed).Errorf("%d invalid manifest(s)", failed)
	}
	return nil
}

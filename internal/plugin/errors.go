// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"github.com/samber/oops"
)

// Error codes for discovery and load failures. None of these abort a
// discovery pass; they are logged and the plugin is skipped.
const (
	CodeManifestInvalid   = "MANIFEST_INVALID"
	CodeManifestDuplicate = "MANIFEST_DUPLICATE"
	CodeLoadFailed        = "LOAD_FAILED"
)

// Load stages reported in LOAD_FAILED errors and metrics.
const (
	StageEntry      = "entry"
	StageRequires   = "requires"
	StageRuntime    = "runtime"
	StageConstruct  = "construct"
	StageIntents    = "intents"
	StageInitialize = "initialize"
)

// ErrManifestInvalid reports a manifest that could not be read or validated.
func ErrManifestInvalid(dir string, cause error) error {
	return oops.Code(CodeManifestInvalid).
		In("plugin").
		With("dir", dir).
		Wrapf(cause, "invalid manifest")
}

// ErrManifestDuplicate reports a manifest whose id was already discovered.
func ErrManifestDuplicate(id, dir, firstDir string) error {
	return oops.Code(CodeManifestDuplicate).
		In("plugin").
		With("plugin_id", id).
		With("dir", dir).
		With("first_dir", firstDir).
		Errorf("duplicate plugin id %s", id)
}

// ErrLoad reports a plugin that was discovered but could not be loaded.
func ErrLoad(id, stage string, cause error) error {
	return oops.Code(CodeLoadFailed).
		In("plugin").
		With("plugin_id", id).
		With("stage", stage).
		Wrapf(cause, "load plugin %s", id)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/holomush/intentd/internal/plugin/capability"
	"github.com/holomush/intentd/pkg/errutil"
	"github.com/holomush/intentd/pkg/intent"
)

// HostAPIVersion is the plugin API version manifests' requires constraints
// are checked against.
const HostAPIVersion = "1.0.0"

// Loader scans plugin directories and loads the plugins it finds.
type Loader struct {
	dirs       []Directory
	loadSystem bool
	loadUser   bool
	hosts      map[Runtime]Host
	enforcer   *capability.Enforcer
	apiVersion *semver.Version
	logger     *slog.Logger
	loaded     []LoadResult
	mu         sync.Mutex
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithHost sets the host used for plugins of the given runtime.
func WithHost(rt Runtime, h Host) LoaderOption {
	return func(l *Loader) {
		l.hosts[rt] = h
	}
}

// WithEnforcer sets the enforcer that receives manifest capability grants.
func WithEnforcer(e *capability.Enforcer) LoaderOption {
	return func(l *Loader) {
		l.enforcer = e
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithAPIVersion overrides the version checked against manifests' requires.
func WithAPIVersion(v *semver.Version) LoaderOption {
	return func(l *Loader) {
		l.apiVersion = v
	}
}

// WithKinds gates loading of system and user plugins.
func WithKinds(system, user bool) LoaderOption {
	return func(l *Loader) {
		l.loadSystem = system
		l.loadUser = user
	}
}

// NewLoader creates a loader over dirs, scanned in the given order.
func NewLoader(dirs []Directory, opts ...LoaderOption) *Loader {
	l := &Loader{
		dirs:       dirs,
		loadSystem: true,
		loadUser:   true,
		hosts:      make(map[Runtime]Host),
		enforcer:   capability.NewEnforcer(),
		apiVersion: semver.MustParse(HostAPIVersion),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Scan finds every enabled, valid manifest under the loader's directories.
// Nothing found during scanning is fatal: missing directories, folders
// without a manifest, and invalid or duplicate manifests are logged and
// skipped.
func (l *Loader) Scan(_ context.Context) []*Registration {
	var regs []*Registration
	seen := make(map[string]string)

	for _, root := range l.dirs {
		if root.Path == "" {
			continue
		}
		entries, err := os.ReadDir(root.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.logger.Warn("plugin directory does not exist",
					"dir", root.Path,
					"system", root.System)
			} else {
				l.logger.Warn("cannot read plugin directory",
					"dir", root.Path,
					"error", err)
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			pluginDir, err := filepath.Abs(filepath.Join(root.Path, entry.Name()))
			if err != nil {
				ManifestErrors.WithLabelValues("path").Inc()
				errutil.LogWarn(l.logger, "skipping plugin", ErrManifestInvalid(entry.Name(), err))
				continue
			}

			data, manifestPath, ok := readManifest(pluginDir)
			if !ok {
				l.logger.Debug("skipping directory without manifest", "dir", pluginDir)
				continue
			}

			manifest, err := ParseManifest(data)
			if err != nil {
				ManifestErrors.WithLabelValues("invalid").Inc()
				errutil.LogWarn(l.logger, "skipping plugin with invalid manifest",
					ErrManifestInvalid(manifestPath, err))
				continue
			}

			if !manifest.IsEnabled() {
				l.logger.Info("skipping disabled plugin",
					"plugin", manifest.ID,
					"dir", pluginDir)
				continue
			}

			if firstDir, dup := seen[manifest.ID]; dup {
				ManifestErrors.WithLabelValues("duplicate").Inc()
				errutil.LogWarn(l.logger, "skipping plugin with duplicate id",
					ErrManifestDuplicate(manifest.ID, pluginDir, firstDir))
				continue
			}
			seen[manifest.ID] = pluginDir

			regs = append(regs, &Registration{
				ID:       manifest.ID,
				Manifest: manifest,
				Dir:      pluginDir,
				System:   root.System,
			})
		}
	}

	return regs
}

// readManifest returns the first manifest file present in dir.
func readManifest(dir string) ([]byte, string, bool) {
	for _, name := range ManifestFiles {
		p := filepath.Join(dir, name)
		data, err := os.ReadFile(p) //nolint:gosec // p is built from ReadDir entries and fixed file names
		if err == nil {
			return data, p, true
		}
	}
	return nil, "", false
}

// Load scans and loads every plugin, one at a time, in scan order.
//
// Load never fails as a whole: each plugin that cannot be loaded is logged
// and left out of the result, which holds only usable plugins. d is handed
// to every plugin through its Env.
func (l *Loader) Load(ctx context.Context, d intent.Dispatcher) []LoadResult {
	regs := l.Scan(ctx)

	results := make([]LoadResult, 0, len(regs))
	for _, reg := range regs {
		if (reg.System && !l.loadSystem) || (!reg.System && !l.loadUser) {
			recordLoad(reg, StatusSkipped)
			l.logger.Info("skipping plugin by kind",
				"plugin", reg.ID,
				"kind", reg.Kind())
			continue
		}

		h, err := l.loadOne(ctx, reg, d)
		if err != nil {
			recordLoad(reg, StatusFailed)
			errutil.LogWarn(l.logger, "failed to load plugin", err)
			continue
		}

		recordLoad(reg, StatusLoaded)
		l.logger.Info("loaded plugin",
			"plugin", reg.ID,
			"runtime", reg.Manifest.EffectiveRuntime(),
			"kind", reg.Kind(),
			"version", reg.Manifest.Version,
			"intents", h.SupportedIntents())
		results = append(results, LoadResult{Handler: h, Registration: reg})
	}

	l.mu.Lock()
	l.loaded = append(l.loaded, results...)
	l.mu.Unlock()

	return results
}

func (l *Loader) loadOne(ctx context.Context, reg *Registration, d intent.Dispatcher) (intent.Handler, error) {
	rt := reg.Manifest.EffectiveRuntime()

	if rt != RuntimeBuiltin {
		if _, err := os.Stat(reg.EntryPath()); err != nil {
			return nil, ErrLoad(reg.ID, StageEntry, err)
		}
	}

	if reg.Manifest.Requires != "" {
		c, err := semver.NewConstraint(reg.Manifest.Requires)
		if err != nil {
			return nil, ErrLoad(reg.ID, StageRequires, err)
		}
		if !c.Check(l.apiVersion) {
			return nil, ErrLoad(reg.ID, StageRequires,
				oops.In("plugin").
					With("plugin_id", reg.ID).
					With("api_version", l.apiVersion.String()).
					With("requires", reg.Manifest.Requires).
					Errorf("host API %s does not satisfy %q", l.apiVersion, reg.Manifest.Requires))
		}
	}

	host, ok := l.hosts[rt]
	if !ok {
		return nil, ErrLoad(reg.ID, StageRuntime,
			oops.In("plugin").With("runtime", string(rt)).Errorf("no host configured for runtime %q", rt))
	}

	env := intent.Env{
		ID:         reg.ID,
		Logger:     l.logger.With("plugin", reg.ID),
		Config:     reg.Manifest.Config,
		Directory:  reg.Dir,
		Dispatcher: d,
	}
	h, err := construct(ctx, host, reg, env)
	if err != nil {
		l.unload(ctx, host, reg.ID)
		return nil, ErrLoad(reg.ID, StageConstruct, err)
	}
	if h == nil {
		l.unload(ctx, host, reg.ID)
		return nil, ErrLoad(reg.ID, StageConstruct, errors.New("factory returned a nil handler"))
	}

	intents := h.SupportedIntents()
	if len(intents) == 0 {
		l.unload(ctx, host, reg.ID)
		return nil, ErrLoad(reg.ID, StageIntents, errors.New("plugin declares no supported intents"))
	}
	if len(reg.Manifest.Capabilities) > 0 {
		if err := l.enforcer.SetGrants(reg.ID, reg.Manifest.Capabilities); err != nil {
			l.unload(ctx, host, reg.ID)
			return nil, ErrLoad(reg.ID, StageIntents, err)
		}
		if denied := l.enforcer.Denied(reg.ID, intents); len(denied) > 0 {
			l.enforcer.RemoveGrants(reg.ID)
			l.unload(ctx, host, reg.ID)
			return nil, ErrLoad(reg.ID, StageIntents,
				oops.In("plugin").With("denied", denied).Errorf("intents outside granted capabilities: %v", denied))
		}
	}

	if initializer, ok := h.(intent.Initializer); ok {
		if err := initializer.Initialize(ctx); err != nil {
			l.enforcer.RemoveGrants(reg.ID)
			l.unload(ctx, host, reg.ID)
			return nil, ErrLoad(reg.ID, StageInitialize, err)
		}
	}

	return h, nil
}

// unload tears down a plugin the host created but the loader rejected.
func (l *Loader) unload(ctx context.Context, host Host, id string) {
	if err := host.Unload(ctx, id); err != nil {
		errutil.LogWarn(l.logger, "failed to unload rejected plugin",
			oops.In("plugin").With("plugin_id", id).Wrapf(err, "unload plugin %s", id))
	}
}

// construct calls the host, turning a panicking constructor into an error.
func construct(ctx context.Context, host Host, reg *Registration, env intent.Env) (h intent.Handler, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, oops.In("plugin").With("plugin_id", reg.ID).Errorf("plugin constructor panicked: %v", r)
		}
	}()
	return host.Load(ctx, reg, env)
}

// Close shuts down loaded handlers in reverse load order, then closes every
// host. Errors are logged; the first one is returned.
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	loaded := l.loaded
	l.loaded = nil
	l.mu.Unlock()

	var first error
	for i := len(loaded) - 1; i >= 0; i-- {
		res := loaded[i]
		if s, ok := res.Handler.(intent.Shutdowner); ok {
			if err := s.Shutdown(ctx); err != nil {
				l.logger.Warn("plugin shutdown failed",
					"plugin", res.Registration.ID,
					"error", err)
				if first == nil {
					first = oops.In("plugin").
						With("plugin_id", res.Registration.ID).
						Wrapf(err, "shutdown plugin %s", res.Registration.ID)
				}
			}
		}
		l.enforcer.RemoveGrants(res.Registration.ID)
	}

	for rt, host := range l.hosts {
		if err := host.Close(ctx); err != nil {
			l.logger.Warn("plugin host close failed",
				"runtime", rt,
				"error", err)
			if first == nil {
				first = oops.In("plugin").
					With("runtime", string(rt)).
					Wrapf(err, "close %s host", rt)
			}
		}
	}

	return first
}

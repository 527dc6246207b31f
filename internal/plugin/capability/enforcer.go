// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package capability bounds which intents a plugin may claim.
//
// Grants are gobwas/glob patterns with ':' as the segment separator:
//   - '*' matches a single segment: "chat:*" matches "chat:send" but not "chat:send:now"
//   - '**' matches any number of segments: "chat:**" matches both
//   - "**" matches every intent
package capability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

// Separator splits intent actions into segments for matching.
const Separator = ':'

type compiledGrant struct {
	pattern string
	glob    glob.Glob
}

// Enforcer holds per-plugin intent grants.
//
// Enforcer is safe for concurrent use. The zero value is ready to use.
type Enforcer struct {
	grants map[string][]compiledGrant
	mu     sync.RWMutex
}

// NewEnforcer creates an enforcer with no grants.
func NewEnforcer() *Enforcer {
	return &Enforcer{
		grants: make(map[string][]compiledGrant),
	}
}

// SetGrants replaces the grants of plugin. All patterns are compiled before
// any state changes, so a bad pattern leaves the enforcer untouched.
func (e *Enforcer) SetGrants(plugin string, patterns []string) error {
	if plugin == "" {
		return errors.New("plugin id cannot be empty")
	}

	compiled := make([]compiledGrant, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return fmt.Errorf("capability %d: empty pattern", i)
		}
		g, err := glob.Compile(pattern, Separator)
		if err != nil {
			return fmt.Errorf("capability %d (%q): %w", i, pattern, err)
		}
		compiled[i] = compiledGrant{pattern: pattern, glob: g}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.grants == nil {
		e.grants = make(map[string][]compiledGrant)
	}
	e.grants[plugin] = compiled
	return nil
}

// RemoveGrants forgets plugin. Safe to call for unknown plugins.
func (e *Enforcer) RemoveGrants(plugin string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.grants, plugin)
}

// IsRegistered reports whether SetGrants was called for plugin.
func (e *Enforcer) IsRegistered(plugin string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.grants[plugin]
	return ok
}

// GetGrants returns a copy of plugin's patterns, or nil if unregistered.
func (e *Enforcer) GetGrants(plugin string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	grants, ok := e.grants[plugin]
	if !ok {
		return nil
	}
	patterns := make([]string, len(grants))
	for i, g := range grants {
		patterns[i] = g.pattern
	}
	return patterns
}

// Check reports whether plugin may claim action. Unknown plugins and empty
// actions are denied.
func (e *Enforcer) Check(plugin, action string) bool {
	if action == "" {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, grant := range e.grants[plugin] {
		if grant.glob.Match(action) {
			return true
		}
	}
	return false
}

// Denied returns the actions in intents that plugin may not claim, in order.
func (e *Enforcer) Denied(plugin string, intents []string) []string {
	var denied []string
	for _, action := range intents {
		if !e.Check(plugin, action) {
			denied = append(denied, action)
		}
	}
	return denied
}

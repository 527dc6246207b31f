// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package resolve picks the handler for an intent.
//
// Resolution runs an ordered chain of strategies over one immutable Index.
// Discovery uses override, sole candidate, then priority table; the legacy
// registry uses namespace, then linear scan.
package resolve

import (
	"slices"

	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/pkg/intent"
)

// Source is one handler offered to the index. Manifest is nil for handlers
// registered without one.
type Source struct {
	ID       string
	Handler  intent.Handler
	Manifest *plugin.Manifest
	System   bool
}

// Entry is an indexed handler. Intents is the snapshot taken at build time.
type Entry struct {
	ID       string
	Handler  intent.Handler
	Manifest *plugin.Manifest
	System   bool
	Intents  []string
}

// mapping returns the entry's manifest mapping for action.
func (e Entry) mapping(action string) (plugin.IntentMapping, bool) {
	if e.Manifest == nil {
		return plugin.IntentMapping{}, false
	}
	return e.Manifest.Mapping(action)
}

// Index maps actions to candidate handlers. It is immutable once built and
// safe for concurrent reads.
type Index struct {
	entries       []Entry
	byID          map[string]int
	candidates    map[string][]string
	substitutedBy map[string]string
}

type buildOptions struct {
	suppressSubstituted bool
}

// Option configures Build.
type Option func(*buildOptions)

// WithSuppressSubstituted removes substituted handlers from candidate lists.
// They can still win through an explicit override.
func WithSuppressSubstituted(suppress bool) Option {
	return func(o *buildOptions) {
		o.suppressSubstituted = suppress
	}
}

// Build indexes sources in order. A repeated id keeps the first source.
func Build(sources []Source, opts ...Option) *Index {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	ix := &Index{
		entries:       make([]Entry, 0, len(sources)),
		byID:          make(map[string]int, len(sources)),
		candidates:    make(map[string][]string),
		substitutedBy: make(map[string]string),
	}

	for _, src := range sources {
		if src.Handler == nil {
			continue
		}
		if _, dup := ix.byID[src.ID]; dup {
			continue
		}
		ix.byID[src.ID] = len(ix.entries)
		ix.entries = append(ix.entries, Entry{
			ID:       src.ID,
			Handler:  src.Handler,
			Manifest: src.Manifest,
			System:   src.System,
			Intents:  slices.Clone(src.Handler.SupportedIntents()),
		})
	}

	for _, e := range ix.entries {
		if e.Manifest == nil {
			continue
		}
		for _, target := range e.Manifest.Substitutes {
			if target == e.ID {
				continue
			}
			if _, seen := ix.substitutedBy[target]; !seen {
				ix.substitutedBy[target] = e.ID
			}
		}
	}

	for _, e := range ix.entries {
		if o.suppressSubstituted && ix.IsSubstituted(e.ID) {
			continue
		}
		for _, action := range e.Intents {
			if !slices.Contains(ix.candidates[action], e.ID) {
				ix.candidates[action] = append(ix.candidates[action], e.ID)
			}
		}
	}

	return ix
}

// Len returns the number of indexed handlers.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Get returns the entry for id.
func (ix *Index) Get(id string) (Entry, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// Entries returns all entries in load order. The slice is a copy.
func (ix *Index) Entries() []Entry {
	return slices.Clone(ix.entries)
}

// Candidates returns the ids that declare action, in load order.
func (ix *Index) Candidates(action string) []string {
	return slices.Clone(ix.candidates[action])
}

// Actions returns every indexed action, sorted.
func (ix *Index) Actions() []string {
	actions := make([]string, 0, len(ix.candidates))
	for action := range ix.candidates {
		actions = append(actions, action)
	}
	slices.Sort(actions)
	return actions
}

// IsSubstituted reports whether another indexed handler's manifest lists id
// in its substitutes. id itself need not be indexed.
func (ix *Index) IsSubstituted(id string) bool {
	_, ok := ix.substitutedBy[id]
	return ok
}

// SubstitutingPlugin returns the first indexed handler, in load order, that
// substitutes id.
func (ix *Index) SubstitutingPlugin(id string) (string, bool) {
	by, ok := ix.substitutedBy[id]
	return by, ok
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package resolve

import "github.com/holomush/intentd/pkg/intent"

// Match is a resolved handler and the strategy that chose it.
type Match struct {
	ID       string
	Handler  intent.Handler
	Strategy string
}

// Resolver runs a chain over an index.
type Resolver struct {
	index *Index
	chain Chain
}

// New creates a resolver. A nil index resolves nothing.
func New(ix *Index, chain Chain) *Resolver {
	if ix == nil {
		ix = Build(nil)
	}
	return &Resolver{index: ix, chain: chain}
}

// Index returns the resolver's index.
func (r *Resolver) Index() *Index {
	return r.index
}

// Resolve returns the handler for action, or false when no strategy finds
// one. It never panics on unknown actions.
func (r *Resolver) Resolve(action string) (Match, bool) {
	for _, s := range r.chain {
		id, ok := s.Resolve(r.index, action)
		if !ok {
			continue
		}
		e, ok := r.index.Get(id)
		if !ok {
			continue
		}
		return Match{ID: id, Handler: e.Handler, Strategy: s.Name}, true
	}
	return Match{}, false
}

// ResolveIntent is Resolve for an intent.
func (r *Resolver) ResolveIntent(in intent.Intent) (Match, bool) {
	return r.Resolve(in.Action)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/intentd/internal/plugin"
	"github.com/holomush/intentd/internal/resolve"
)

func substituting(id string, targets []string, intents ...string) resolve.Source {
	src := source(id, nil, intents...)
	src.Manifest.Substitutes = targets
	return src
}

func TestBuild_OrderAndDuplicates(t *testing.T) {
	first := source("a", nil, "x:one")
	ix := resolve.Build([]resolve.Source{
		first,
		source("b", nil, "x:one", "x:two", "x:two"),
		source("a", nil, "x:three"),
		{ID: "nil-handler"},
	})

	require.Equal(t, 2, ix.Len())
	entries := ix.Entries()
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Same(t, first.Handler, entries[0].Handler)

	assert.Equal(t, []string{"a", "b"}, ix.Candidates("x:one"))
	assert.Equal(t, []string{"b"}, ix.Candidates("x:two"))
	assert.Empty(t, ix.Candidates("x:three"))
	assert.Equal(t, []string{"x:one", "x:two"}, ix.Actions())

	_, ok := ix.Get("nil-handler")
	assert.False(t, ok)
}

func TestBuild_SnapshotsIntents(t *testing.T) {
	h := &handler{intents: []string{"x:one"}}
	ix := resolve.Build([]resolve.Source{{ID: "a", Handler: h}})

	h.intents = append(h.intents, "x:two")

	assert.Empty(t, ix.Candidates("x:two"))
	e, _ := ix.Get("a")
	assert.Equal(t, []string{"x:one"}, e.Intents)
}

func TestBuild_EntriesAreCopies(t *testing.T) {
	ix := resolve.Build([]resolve.Source{source("a", nil, "x:one")})

	entries := ix.Entries()
	entries[0].ID = "mutated"
	candidates := ix.Candidates("x:one")
	candidates[0] = "mutated"

	e, ok := ix.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", e.ID)
	assert.Equal(t, []string{"a"}, ix.Candidates("x:one"))
}

func TestSubstitution(t *testing.T) {
	ix := resolve.Build([]resolve.Source{
		source("legacy-search", nil, "search:query"),
		substituting("better-search", []string{"legacy-search", "better-search"}, "search:query"),
		substituting("best-search", []string{"legacy-search", "unloaded"}, "search:fancy"),
	})

	assert.True(t, ix.IsSubstituted("legacy-search"))
	assert.True(t, ix.IsSubstituted("unloaded"))
	assert.False(t, ix.IsSubstituted("better-search"), "self-substitution is ignored")
	assert.False(t, ix.IsSubstituted("best-search"))

	by, ok := ix.SubstitutingPlugin("legacy-search")
	require.True(t, ok)
	assert.Equal(t, "better-search", by)

	_, ok = ix.SubstitutingPlugin("best-search")
	assert.False(t, ok)
}

func TestSubstitution_DoesNotChangeResolutionByDefault(t *testing.T) {
	sources := []resolve.Source{
		source("legacy-search", mapped("search:query", 10, true), "search:query"),
		substituting("better-search", []string{"legacy-search"}, "search:query"),
	}
	sources[1].Manifest.IntentMapping = mapped("search:query", 1, true)
	ix := resolve.Build(sources)

	m, ok := resolve.New(ix, resolve.PriorityChain(nil)).Resolve("search:query")
	require.True(t, ok)
	assert.Equal(t, "legacy-search", m.ID)
}

func TestSubstitution_Suppressed(t *testing.T) {
	sources := []resolve.Source{
		source("legacy-search", mapped("search:query", 10, true), "search:query"),
		substituting("better-search", []string{"legacy-search"}, "search:query"),
	}
	sources[1].Manifest.IntentMapping = mapped("search:query", 1, true)
	ix := resolve.Build(sources, resolve.WithSuppressSubstituted(true))

	assert.Equal(t, []string{"better-search"}, ix.Candidates("search:query"))

	m, ok := resolve.New(ix, resolve.PriorityChain(nil)).Resolve("search:query")
	require.True(t, ok)
	assert.Equal(t, "better-search", m.ID)

	m, ok = resolve.New(ix, resolve.PriorityChain(map[string]string{"search:query": "legacy-search"})).Resolve("search:query")
	require.True(t, ok)
	assert.Equal(t, "legacy-search", m.ID, "override still wins")
}

func TestEntry_ManifestlessMappingIgnored(t *testing.T) {
	ix := resolve.Build([]resolve.Source{
		{ID: "bare", Handler: &handler{intents: []string{"x:one"}}},
		{ID: "bare2", Handler: &handler{intents: []string{"x:one"}}, Manifest: &plugin.Manifest{ID: "bare2"}},
	})

	_, ok := resolve.New(ix, resolve.PriorityChain(nil)).Resolve("x:one")
	assert.False(t, ok)
}

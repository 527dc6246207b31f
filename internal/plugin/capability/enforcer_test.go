// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package capability_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/intentd/internal/plugin/capability"
)

func TestEnforcer_Check(t *testing.T) {
	tests := []struct {
		name   string
		grants []string
		action string
		want   bool
	}{
		{"exact match", []string{"chat:send"}, "chat:send", true},
		{"single segment wildcard", []string{"chat:*"}, "chat:send", true},
		{"single segment wildcard does not cross separator", []string{"chat:*"}, "chat:send:now", false},
		{"super wildcard crosses separator", []string{"chat:**"}, "chat:send:now", true},
		{"root super wildcard", []string{"**"}, "report:generate", true},
		{"different namespace", []string{"chat:*"}, "search:query", false},
		{"no grants", []string{}, "chat:send", false},
		{"prefix is not a match", []string{"chat"}, "chat:send", false},
		{"alternation", []string{"{chat,search}:*"}, "search:query", true},
		{"empty action", []string{"**"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := capability.NewEnforcer()
			require.NoError(t, e.SetGrants("p", tt.grants))
			assert.Equal(t, tt.want, e.Check("p", tt.action))
		})
	}
}

func TestEnforcer_UnknownPluginDenied(t *testing.T) {
	e := capability.NewEnforcer()
	assert.False(t, e.Check("unknown", "chat:send"))
	assert.False(t, e.IsRegistered("unknown"))
	assert.Nil(t, e.GetGrants("unknown"))
}

func TestEnforcer_ZeroValue(t *testing.T) {
	var e capability.Enforcer
	assert.False(t, e.Check("p", "chat:send"))
	require.NoError(t, e.SetGrants("p", []string{"chat:*"}))
	assert.True(t, e.Check("p", "chat:send"))
	e.RemoveGrants("p")
	assert.False(t, e.IsRegistered("p"))
}

func TestEnforcer_SetGrants_Invalid(t *testing.T) {
	e := capability.NewEnforcer()
	require.NoError(t, e.SetGrants("p", []string{"chat:*"}))

	assert.Error(t, e.SetGrants("", []string{"chat:*"}))
	assert.Error(t, e.SetGrants("p", []string{""}))
	assert.Error(t, e.SetGrants("p", []string{"chat:[unclosed"}))

	// Failed calls leave existing grants in place.
	assert.Equal(t, []string{"chat:*"}, e.GetGrants("p"))
}

func TestEnforcer_GetGrantsIsCopy(t *testing.T) {
	e := capability.NewEnforcer()
	patterns := []string{"chat:*"}
	require.NoError(t, e.SetGrants("p", patterns))
	patterns[0] = "**"

	got := e.GetGrants("p")
	got[0] = "search:*"
	assert.Equal(t, []string{"chat:*"}, e.GetGrants("p"))
}

func TestEnforcer_Denied(t *testing.T) {
	e := capability.NewEnforcer()
	require.NoError(t, e.SetGrants("p", []string{"chat:*"}))
	assert.Equal(t, []string{"search:query", "admin:wipe"},
		e.Denied("p", []string{"chat:send", "search:query", "admin:wipe"}))
	assert.Empty(t, e.Denied("p", []string{"chat:send"}))
}

func TestEnforcer_Concurrent(t *testing.T) {
	e := capability.NewEnforcer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = e.SetGrants("p", []string{"chat:*"})
		}()
		go func() {
			defer wg.Done()
			_ = e.Check("p", "chat:send")
		}()
	}
	wg.Wait()
	assert.True(t, e.Check("p", "chat:send"))
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package resolve

import (
	"maps"

	"github.com/holomush/intentd/pkg/intent"
)

// Strategy names, reported in Match and in metrics.
const (
	StrategyOverride      = "override"
	StrategySoleCandidate = "sole_candidate"
	StrategyPriorityTable = "priority_table"
	StrategyNamespace     = "namespace"
	StrategyLinearScan    = "linear_scan"
)

// Strategy is one pure resolution step. Resolve returns the winning id or
// false to defer to the next strategy.
type Strategy struct {
	Name    string
	Resolve func(ix *Index, action string) (string, bool)
}

// Override wins when table maps action to an indexed id. Unknown ids fall
// through.
func Override(table map[string]string) Strategy {
	table = maps.Clone(table)
	return Strategy{
		Name: StrategyOverride,
		Resolve: func(ix *Index, action string) (string, bool) {
			id, ok := table[action]
			if !ok {
				return "", false
			}
			if _, loaded := ix.Get(id); !loaded {
				return "", false
			}
			return id, true
		},
	}
}

// SoleCandidate wins when exactly one handler declares action. The
// manifest mapping is not consulted.
var SoleCandidate = Strategy{
	Name: StrategySoleCandidate,
	Resolve: func(ix *Index, action string) (string, bool) {
		ids := ix.candidates[action]
		if len(ids) != 1 {
			return "", false
		}
		return ids[0], true
	},
}

// PriorityTable picks, among candidates with an enabled mapping for action,
// the one with the greatest priority. Equal priorities go to the
// lexicographically smallest id. No enabled mapping means no winner.
var PriorityTable = Strategy{
	Name: StrategyPriorityTable,
	Resolve: func(ix *Index, action string) (string, bool) {
		var (
			best     string
			bestPrio float64
			found    bool
		)
		for _, id := range ix.candidates[action] {
			e, _ := ix.Get(id)
			m, ok := e.mapping(action)
			if !ok || !m.Enabled {
				continue
			}
			if !found || m.Priority > bestPrio || (m.Priority == bestPrio && id < best) {
				best, bestPrio, found = id, m.Priority, true
			}
		}
		return best, found
	},
}

// Namespace wins when the handler whose id equals the action's namespace
// declares action.
var Namespace = Strategy{
	Name: StrategyNamespace,
	Resolve: func(ix *Index, action string) (string, bool) {
		id := intent.Namespace(action)
		e, ok := ix.Get(id)
		if !ok {
			return "", false
		}
		for _, a := range e.Intents {
			if a == action {
				return id, true
			}
		}
		return "", false
	},
}

// LinearScan returns the first handler in load order that declares action.
var LinearScan = Strategy{
	Name: StrategyLinearScan,
	Resolve: func(ix *Index, action string) (string, bool) {
		ids := ix.candidates[action]
		if len(ids) == 0 {
			return "", false
		}
		return ids[0], true
	},
}

// Chain is an ordered list of strategies. The first hit wins.
type Chain []Strategy

// PriorityChain is the discovery chain.
func PriorityChain(overrides map[string]string) Chain {
	return Chain{Override(overrides), SoleCandidate, PriorityTable}
}

// LinearChain ignores overrides and priorities.
func LinearChain() Chain {
	return Chain{LinearScan}
}

// LegacyChain is the explicit-registration chain.
func LegacyChain() Chain {
	return Chain{Namespace, LinearScan}
}

// Names returns the strategy names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}

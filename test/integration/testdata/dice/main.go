// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command dice is a binary plugin used by the integration suite.
package main

import (
	"context"
	"math/rand/v2"

	"github.com/samber/oops"

	"github.com/holomush/intentd/pkg/intent"
	"github.com/holomush/intentd/pkg/pluginsdk"
)

type dice struct {
	sides int
}

func (d *dice) SupportedIntents() []string {
	return []string{"dice:roll", "dice:fail"}
}

func (d *dice) Execute(_ context.Context, in intent.Intent, ec intent.ExecContext) (any, error) {
	if in.Action == "dice:fail" {
		return nil, oops.Errorf("the dice fell off the table")
	}
	return map[string]any{
		"sides":      d.sides,
		"roll":       1 + rand.IntN(d.sides), //nolint:gosec // game dice
		"request_id": ec.RequestID.String(),
	}, nil
}

func newDice(env intent.Env) (intent.Handler, error) {
	sides := 6
	if v, ok := env.Config["sides"].(float64); ok {
		sides = int(v)
	}
	if sides < 2 {
		return nil, oops.With("sides", sides).Errorf("dice need at least two sides")
	}
	return &dice{sides: sides}, nil
}

func main() {
	pluginsdk.Serve(&pluginsdk.ServeConfig{Factory: newDice})
}

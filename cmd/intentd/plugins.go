// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/intentd/internal/router"
	"github.com/holomush/intentd/pkg/intent"
)

// pluginRow is one line of `plugins list`.
type pluginRow struct {
	ID            string   `json:"id"`
	Source        string   `json:"source"`
	Kind          string   `json:"kind,omitempty"`
	Runtime       string   `json:"runtime,omitempty"`
	Intents       []string `json:"intents"`
	SubstitutedBy string   `json:"substituted_by,omitempty"`
}

// resolveOutput is the result of `plugins resolve`.
type resolveOutput struct {
	Action     string   `json:"action"`
	Found      bool     `json:"found"`
	Plugin     string   `json:"plugin,omitempty"`
	Source     string   `json:"source"`
	Strategy   string   `json:"strategy,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

type pluginsConfig struct {
	jsonOutput bool
	source     string
}

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect and exercise loaded plugins",
	}
	cmd.AddCommand(newPluginsListCmd())
	cmd.AddCommand(newPluginsResolveCmd())
	cmd.AddCommand(newPluginsExecCmd())
	return cmd
}

func newPluginsListCmd() *cobra.Command {
	cfg := &pluginsConfig{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every plugin available for resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				return writeOutput(cmd.OutOrStdout(), cfg.jsonOutput, listPlugins(a), formatPluginTable)
			})
		},
	}
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newPluginsResolveCmd() *cobra.Command {
	cfg := &pluginsConfig{}
	cmd := &cobra.Command{
		Use:   "resolve <action>",
		Short: "Show which plugin would handle an intent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				out := resolveAction(a, args[0])
				if err := writeOutput(cmd.OutOrStdout(), cfg.jsonOutput, out, formatResolve); err != nil {
					return err
				}
				if !out.Found {
					return router.ErrNoHandler(args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newPluginsExecCmd() *cobra.Command {
	cfg := &pluginsConfig{}
	cmd := &cobra.Command{
		Use:   "exec <action> [json-data]",
		Short: "Execute an intent and print the result as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := intent.Intent{Action: args[0]}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &in.Data); err != nil {
					return oops.In("cli").With("data", args[1]).Wrapf(err, "intent data must be JSON")
				}
			}
			return withApp(cmd, func(a *app) error {
				res := a.router.ExecuteIntent(cmd.Context(), in, intent.ExecContext{Source: cfg.source})
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return oops.In("cli").With("action", in.Action).Errorf("%s", res.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cfg.source, "source", "cli", "source recorded on the intent")
	return cmd
}

// withApp builds the app, runs fn and shuts the plugins down.
func withApp(cmd *cobra.Command, fn func(*app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
		cmd.SetContext(ctx)
	}
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(a)
}

func listPlugins(a *app) []pluginRow {
	var rows []pluginRow
	for _, e := range a.discovery.Entries() {
		row := pluginRow{
			ID:      e.ID,
			Source:  router.SourceDiscovery,
			Kind:    "user",
			Intents: e.Intents,
		}
		if e.System {
			row.Kind = "system"
		}
		if e.Manifest != nil {
			row.Runtime = string(e.Manifest.EffectiveRuntime())
		}
		if by, _, ok := a.router.GetSubstitutingPlugin(e.ID); ok {
			row.SubstitutedBy = by
		}
		rows = append(rows, row)
	}
	for _, reg := range a.registry.Entries() {
		row := pluginRow{
			ID:      reg.ID,
			Source:  router.SourceLegacy,
			Intents: reg.Handler.SupportedIntents(),
		}
		if by, _, ok := a.router.GetSubstitutingPlugin(reg.ID); ok {
			row.SubstitutedBy = by
		}
		rows = append(rows, row)
	}
	return rows
}

func resolveAction(a *app, action string) resolveOutput {
	out := resolveOutput{
		Action:     action,
		Candidates: a.discovery.Candidates(action),
	}
	found, ok := a.router.FindPluginForIntent(intent.Intent{Action: action})
	out.Found = ok
	out.Source = found.Source
	if ok {
		out.Plugin = found.ID
		out.Strategy = found.Strategy
	}
	return out
}

func writeOutput[T any](w io.Writer, asJSON bool, v T, table func(io.Writer, T) error) error {
	if asJSON {
		return writeJSON(w, v)
	}
	return table(w, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.In("cli").Wrapf(err, "encode output")
	}
	return nil
}

func formatPluginTable(w io.Writer, rows []pluginRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tKIND\tRUNTIME\tINTENTS\tSUBSTITUTED BY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Source, dash(r.Kind), dash(r.Runtime), strings.Join(r.Intents, ","), dash(r.SubstitutedBy))
	}
	return tw.Flush() //nolint:wrapcheck // writer errors pass through
}

func formatResolve(w io.Writer, out resolveOutput) error {
	if !out.Found {
		_, err := fmt.Fprintf(w, "%s: no plugin found\n", out.Action)
		return err //nolint:wrapcheck // writer errors pass through
	}
	_, err := fmt.Fprintf(w, "%s -> %s (source: %s, strategy: %s, candidates: %s)\n",
		out.Action, out.Plugin, out.Source, out.Strategy, dash(strings.Join(out.Candidates, ",")))
	return err //nolint:wrapcheck // writer errors pass through
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

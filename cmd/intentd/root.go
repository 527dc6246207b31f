// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/intentd/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the intentd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intentd",
		Short: "intentd - intent routing for manifest-driven plugins",
		Long: `intentd discovers plugins from manifest folders, resolves namespaced
intents to exactly one handler, and executes them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newPluginsCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

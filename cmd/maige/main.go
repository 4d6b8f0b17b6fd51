/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main is the maige command: the GitHub App webhook server, the
// engineering agent, and schema migration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/maige/config"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		clog.FatalContextf(ctx, "%v", err)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cfg := new(config.Config)

	root := &cobra.Command{
		Use:          "maige",
		Short:        "AI automation for GitHub repositories",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(cmd.Context(), envFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			*cfg = *loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment; ignored when absent")

	root.AddCommand(
		newServeCommand(cfg),
		newEngineerCommand(cfg),
		newMigrateCommand(cfg),
	)
	return root
}

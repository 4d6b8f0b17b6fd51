/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"chainguard.dev/maige/config"
	"chainguard.dev/maige/store/sqlstore"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateMigrate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := sqlstore.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			clog.InfoContext(ctx, "Schema is up to date")
			return nil
		},
	}
}

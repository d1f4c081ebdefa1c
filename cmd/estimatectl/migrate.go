package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	repo "github.com/ict-ryuma/document-ocr/internal/repository"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.config()
			db, err := repo.Open(cmd.Context(), repo.Config{
				Driver:           cfg.Database.Driver,
				DSN:              cfg.Database.DSN,
				DialTimeout:      cfg.Database.DialTimeout,
				StatementTimeout: cfg.Database.StatementTimeout,
			}, slog.Default())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			v, err := db.CurrentVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		},
	}
}

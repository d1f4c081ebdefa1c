package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ict-ryuma/document-ocr/internal/app"
	"github.com/ict-ryuma/document-ocr/internal/orchestrator"
)

func extractCmd(opts *rootOptions) *cobra.Command {
	var vendor, strategy string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract an estimate without storing it",
		Long:  `Run the extraction pipeline on one file and print the normalized result as JSON.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config()
			if strategy != "" {
				cfg.Orchestrator.Strategy = strategy
			}
			if err := cfg.ValidateExtraction(); err != nil {
				return err
			}
			orch, err := app.NewOrchestrator(cmd.Context(), cfg, slog.Default())
			if err != nil {
				return err
			}
			res, err := orch.Extract(cmd.Context(), orchestrator.Request{Path: args[0], VendorName: vendor})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name override")
	cmd.Flags().StringVar(&strategy, "strategy", "", "fallback or hybrid; defaults to OCR_STRATEGY")
	return cmd
}

func adaptersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "Show which recognition backends are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, err := app.NewOrchestrator(cmd.Context(), opts.config(), slog.Default())
			if err != nil {
				return err
			}
			return printJSON(cmd, orch.Adapters())
		},
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func exportCmd(opts *rootOptions) *cobra.Command {
	var (
		out      string
		category string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored estimates or a recommendation to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var b []byte
			if category != "" {
				rec, err := a.Estimates.Recommend(cmd.Context(), category)
				if err != nil {
					return err
				}
				b, err = a.Exporter.ExportRecommendationXLSX(cmd.Context(), rec)
				if err != nil {
					return err
				}
			} else {
				b, err = a.Exporter.ExportEstimatesXLSX(cmd.Context(), limit)
				if err != nil {
					return err
				}
			}

			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "estimates.xlsx", "output XLSX path")
	cmd.Flags().StringVar(&category, "category", "", "export the recommendation for this category instead of all estimates")
	cmd.Flags().IntVar(&limit, "limit", 0, "export only the newest N estimates")
	return cmd
}

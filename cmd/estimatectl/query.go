package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ict-ryuma/document-ocr/constants"
)

func recommendCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "recommend <category>",
		Short: "Recommend the cheapest vendor for a category",
		Long: `Compare every stored estimate for a canonical category (e.g. wiper_blade) and
show the cheapest single vendor, the theoretical split of cheapest parts and
cheapest labor, and every vendor's total.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: constants.AsStringSlice(),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Estimates.Recommend(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, rec)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "category:     %s\n", rec.Category)
			fmt.Fprintf(out, "single best:  %s (estimate %d) %s\n", rec.SingleVendorBest.Vendor, rec.SingleVendorBest.EstimateID, yen(rec.SingleVendorBest.Total))
			fmt.Fprintf(out, "split best:   parts %s + labor %s = %s\n",
				yen(rec.SplitTheoreticalBest.PartsMin), yen(rec.SplitTheoreticalBest.LaborMin), yen(rec.SplitTheoreticalBest.Total))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tESTIMATE\tVENDOR\tTOTAL")
			for i, vt := range rec.TotalsPerVendor {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, vt.EstimateID, vt.Vendor, yen(vt.Total))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func searchCmd(opts *rootOptions) *cobra.Command {
	var (
		area   string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Find the cheapest stored items matching a keyword",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Estimates.FindCheapest(cmd.Context(), keyword, area, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AMOUNT\tITEM\tCATEGORY\tTYPE\tVENDOR\tDATE")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", yen(it.AmountExclTax), it.RawName, it.CanonicalName, it.CostType, it.VendorName, it.EstimateDate)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&area, "area", "", "restrict to vendors whose address contains this text")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func statsCmd(opts *rootOptions) *cobra.Command {
	var averages bool
	cmd := &cobra.Command{
		Use:   "stats [keyword]",
		Short: "Summarize stored prices",
		Long:  `Print item count, vendor count and average/min/max amount for a keyword, or with --averages the mean amount per category and cost type.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if averages {
				avgs, err := a.Estimates.AveragePrices(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, avgs)
			}
			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}
			stats, err := a.Estimates.Statistics(cmd.Context(), keyword)
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
	cmd.Flags().BoolVar(&averages, "averages", false, "average amount per category and cost type")
	return cmd
}

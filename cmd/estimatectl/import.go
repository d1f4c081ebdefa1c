package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ict-ryuma/document-ocr/internal/async"
	"github.com/ict-ryuma/document-ocr/internal/ingest"
)

func importCmd(opts *rootOptions) *cobra.Command {
	var (
		dir       string
		vendor    string
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Extract and store estimates",
		Long: `Extract each file and store the result. With --dir every pdf, jpg, jpeg,
png and heic file in the directory is queued and imported by the worker pool.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files := append([]string(nil), args...)
			if dir != "" {
				found, err := ingest.Scan(dir, recursive)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return fmt.Errorf("nothing to import: pass files or --dir")
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := runImports(ctx, a.Estimates, files, vendor,
				async.WithWorkers(a.Config.Queue.Workers),
				async.WithQueueSize(a.Config.Queue.Size),
				async.WithJobTimeout(a.Config.Queue.JobTimeout),
			)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", r.Job.Path, r.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK    %s -> estimate %d (%d items, %s)\n", r.Job.Path, r.EstimateID, r.Items, r.Method)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d/%d files\n", len(results)-failed, len(results))
			if failed > 0 {
				return fmt.Errorf("%d of %d imports failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of estimate files")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "descend into subdirectories of --dir")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name override for every file")
	return cmd
}

// runImports feeds files through an ImportQueue and returns the results in
// input order.
func runImports(ctx context.Context, importer async.Importer, files []string, vendor string, opts ...async.Option) ([]async.Result, error) {
	var (
		mu      sync.Mutex
		results = make([]async.Result, 0, len(files))
	)
	opts = append(opts, async.WithOnDone(func(r async.Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}))
	q := async.NewImportQueue(importer, slog.Default(), opts...)

	order := make(map[string]int, len(files))
	var enqueueErr error
	for i, f := range files {
		if _, err := q.Enqueue(ctx, async.Job{Path: f, VendorName: vendor}); err != nil {
			enqueueErr = err
			break
		}
		order[f] = i
	}
	if err := q.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	if enqueueErr != nil {
		return nil, enqueueErr
	}

	sort.SliceStable(results, func(i, j int) bool {
		return order[results[i].Job.Path] < order[results[j].Job.Path]
	})
	return results, nil
}

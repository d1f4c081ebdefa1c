package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/async"
	"github.com/ict-ryuma/document-ocr/internal/ingest"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	var (
		dirs     []string
		vendor   string
		existing bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import estimate files as they appear in a directory",
		Long:  `Watch one or more directories (recursively) and import every new or rewritten pdf, jpg, jpeg, png or heic file until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(dirs) == 0 {
				return fmt.Errorf("--dir is required")
			}
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			q := async.NewImportQueue(a.Estimates, slog.Default(),
				async.WithWorkers(a.Config.Queue.Workers),
				async.WithQueueSize(a.Config.Queue.Size),
				async.WithJobTimeout(a.Config.Queue.JobTimeout),
				async.WithOnDone(func(r async.Result) {
					mu.Lock()
					defer mu.Unlock()
					if r.Status == constants.JobStatusFailed {
						fmt.Fprintf(out, "FAIL  %s: %v\n", r.Job.Path, r.Err)
						return
					}
					fmt.Fprintf(out, "OK    %s -> estimate %d (%d items, %s)\n", r.Job.Path, r.EstimateID, r.Items, r.Method)
				}),
			)

			events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{Roots: dirs, InitialScan: existing, Debounce: debounce}, slog.Default())
			if err != nil {
				_ = q.Shutdown(ctx)
				return err
			}
			slog.Info("watching for estimates", "dirs", dirs)
			for events != nil || errs != nil {
				select {
				case p, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					if _, err := q.Enqueue(ctx, async.Job{Path: p, VendorName: vendor}); err != nil {
						slog.Warn("enqueue failed", "path", p, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					slog.Warn("watch error", "error", err)
				}
			}
			return q.Shutdown(context.WithoutCancel(ctx))
		},
	}
	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "directory to watch (repeatable)")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name override for every file")
	cmd.Flags().BoolVar(&existing, "existing", false, "also import files already present")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "wait for writes to settle before importing")
	return cmd
}

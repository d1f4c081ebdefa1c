package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ict-ryuma/document-ocr/internal/app"
	"github.com/ict-ryuma/document-ocr/internal/common"
)

type rootOptions struct {
	logLevel string
	dbDriver string
	dbURL    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "estimatectl",
		Short: "Extract, store and compare vendor estimates",
		Long: `estimatectl reads scanned vendor estimates (PDF or image), extracts their
line items through the configured recognition backends, stores them, and
recommends the cheapest way to buy a category of work.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := opts.logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			slog.SetDefault(app.NewLogger(level))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.dbDriver, "db-driver", "", "database driver (postgres, sqlite); defaults to DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.dbURL, "db", "", "database URL or sqlite path; defaults to DB_URL")

	cmd.AddCommand(extractCmd(opts))
	cmd.AddCommand(importCmd(opts))
	cmd.AddCommand(recommendCmd(opts))
	cmd.AddCommand(searchCmd(opts))
	cmd.AddCommand(statsCmd(opts))
	cmd.AddCommand(exportCmd(opts))
	cmd.AddCommand(migrateCmd(opts))
	cmd.AddCommand(watchCmd(opts))
	cmd.AddCommand(adaptersCmd(opts))
	return cmd
}

// config loads the environment and applies flag overrides.
func (o *rootOptions) config() *common.Config {
	cfg := common.LoadConfig()
	if o.dbDriver != "" {
		cfg.Database.Driver = o.dbDriver
	}
	if o.dbURL != "" {
		cfg.Database.DSN = o.dbURL
	}
	return cfg
}

// open wires the full application, database included.
func (o *rootOptions) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.config(), slog.Default())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

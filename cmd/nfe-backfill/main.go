// Command nfe-backfill sweeps the inbound prefix for invoices that missed
// their trigger delivery and runs the pipeline over them. It also bootstraps
// the durable table.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sudleather/nfe-ingest/internal/config"
	"github.com/sudleather/nfe-ingest/internal/gcp"
	"github.com/sudleather/nfe-ingest/internal/services"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nfe-backfill",
	Short: "Maintenance tooling for the NF-e ingestion pipeline",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every pending invoice under the inbound prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("NFE_STORAGE_BUCKET environment variable must be set")
		}
		ctx := cmd.Context()

		store, err := gcp.NewObjectStore(ctx)
		if err != nil {
			return err
		}
		processor, err := services.NewProcessor(ctx, cfg)
		if err != nil {
			return err
		}

		names, err := store.List(ctx, cfg.Storage.Bucket, cfg.Storage.InboundPrefix)
		if err != nil {
			return err
		}
		slog.Info("Found pending objects.", "count", len(names), "prefix", cfg.Storage.InboundPrefix)

		// Objects are processed concurrently with each other; every single
		// object still goes through the pipeline as one synchronous unit.
		var processed, skipped atomic.Int64
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(cfg.Backfill.Concurrency)
		for _, name := range names {
			eg.Go(func() error {
				outcome := processor.Process(gctx, cfg.Storage.Bucket, name)
				if outcome.Rejected() {
					skipped.Add(1)
				} else {
					processed.Add(1)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		slog.Info("Backfill complete.", "handled", processed.Load(), "rejected", skipped.Load())
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the durable BigQuery table if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bqClient, err := gcp.NewBigQueryClient(ctx, cfg.ProjectID)
		if err != nil {
			return err
		}
		merger := services.NewBigQueryMerger(bqClient, cfg.BigQuery)
		return merger.EnsureTable(ctx)
	},
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rootCmd.AddCommand(runCmd, setupCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tickerql/tickerql/internal/ingest"
)

func newIngestCommand(rt *runtime) *cobra.Command {
	var (
		watch bool
		prune bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [ticker...]",
		Short: "Download quarterly statements and store them as parquet",
		Long: `Downloads quarterly statements for the given tickers, or for every ticker in
the configured tickers file when none are given, and registers one parquet file
per ticker in the catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && len(args) > 0 {
				return errors.New("--watch only applies to the tickers file")
			}
			backend, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			ingester, err := backend.requireIngester()
			if err != nil {
				return err
			}

			var summary ingest.Summary
			if len(args) == 0 {
				summary, err = ingester.RunTickersFile(cmd.Context(), ingest.TriggerManual)
			} else {
				summary, err = ingester.Run(cmd.Context(), ingest.TriggerManual, args)
			}
			if summary.RunID != "" {
				renderSummary(cmd.OutOrStdout(), summary)
			}
			if err != nil && !watch {
				return err
			}
			if err != nil {
				rt.logger.WarnContext(cmd.Context(), "initial ingest run failed", slog.String("error", err.Error()))
			}

			if prune {
				removed, err := ingester.PruneOrphans(cmd.Context())
				if err != nil {
					return fmt.Errorf("prune orphaned files: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d orphaned file(s)\n", removed)
			}

			if watch {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "watching %s for changes\n", rt.cfg.Ingest.TickersFile)
				return ingester.WatchTickersFile(cmd.Context())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-ingest whenever the tickers file changes")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete stored files no longer referenced by the catalog")
	return cmd
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/ingest"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load program-office CSV exports into staging",
	Long:  "Bulk-copies CSV exports into staging tables, tracking each file by content hash so already-loaded files are never reprocessed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if dir, _ := cmd.Flags().GetString("input-dir"); dir != "" {
			cfg.Load.InputDir = dir
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		loader := ingest.NewLoader(pool, cfg.Load.InputDir, ingest.StageSpecs)
		stats, err := loader.Run(ctx, cfg.Enrich.TriggeredBy)
		if err != nil {
			return eris.Wrap(err, "load")
		}

		zap.L().Info("load complete",
			zap.Int("files", stats.Files),
			zap.Int("loaded", stats.Loaded),
			zap.Int("skipped", stats.Skipped),
			zap.Int64("rows", stats.Rows))
		return nil
	},
}

func init() {
	loadCmd.Flags().String("input-dir", "", "override the CSV input directory")
	rootCmd.AddCommand(loadCmd)
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/ingest"
	"github.com/baratimohammad/2026-DSThesis/internal/ocr"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse LinkedIn profile PDFs into staging",
	Long:  "Discovers profile exports under the input dir, registers each by content hash, extracts page text, and parses the Experience section into role records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if dir, _ := cmd.Flags().GetString("input-dir"); dir != "" {
			cfg.Parse.InputDir = dir
		}

		extractor, err := ocr.NewExtractor(cfg.Parse)
		if err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		parser := ingest.NewParser(pool, extractor, cfg.Parse.InputDir)
		stats, err := parser.Run(ctx, cfg.Enrich.TriggeredBy)
		if err != nil {
			return eris.Wrap(err, "parse")
		}

		zap.L().Info("parse complete",
			zap.Int("found", stats.Found),
			zap.Int("parsed", stats.Parsed),
			zap.Int("needs_review", stats.NeedsReview),
			zap.Int("failed", stats.Failed))
		return nil
	},
}

func init() {
	parseCmd.Flags().String("input-dir", "", "override the PDF input directory")
	rootCmd.AddCommand(parseCmd)
}

package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/etl"
	"github.com/baratimohammad/2026-DSThesis/pkg/ollama"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Classify career status of parsed documents via the LLM",
	Long:  "Selects eligible documents, renders the prompt from their parsed roles, calls the model once per document, validates the response, and persists each outcome in its own transaction.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if m, _ := cmd.Flags().GetString("model"); m != "" {
			cfg.Ollama.Model = m
		}
		if n, _ := cmd.Flags().GetInt("max-attempts"); n > 0 {
			cfg.Enrich.MaxAttempts = n
		}

		prompt, err := etl.LoadPrompt(cfg.Enrich.PromptPath, cfg.Enrich.PromptVersion)
		if err != nil {
			return err
		}

		opts := []ollama.Option{
			ollama.WithBaseURL(cfg.Ollama.BaseURL),
			ollama.WithTimeout(time.Duration(cfg.Ollama.TimeoutSecs) * time.Second),
			ollama.WithMaxAttempts(cfg.Ollama.MaxRetries),
		}
		if cfg.Ollama.RequestsPerSec > 0 {
			opts = append(opts, ollama.WithRateLimit(cfg.Ollama.RequestsPerSec))
		}
		client := ollama.NewClient(opts...)

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		engine := etl.NewEngine(pool, client, prompt, etl.Params{
			Model:         cfg.Ollama.Model,
			PromptVersion: cfg.Enrich.PromptVersion,
			MaxAttempts:   cfg.Enrich.MaxAttempts,
			TriggeredBy:   cfg.Enrich.TriggeredBy,
		})

		stats, err := engine.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		zap.L().Info("enrich complete",
			zap.Int("selected", stats.Selected),
			zap.Int("enriched", stats.Enriched),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("model", "", "override the model name")
	enrichCmd.Flags().Int("max-attempts", 0, "override the retry budget per document")
	rootCmd.AddCommand(enrichCmd)
}

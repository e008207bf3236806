package etl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
	"github.com/baratimohammad/2026-DSThesis/pkg/ollama"
)

// PipelineEnrich is the pipeline name stamped on enrichment runs.
const PipelineEnrich = "llm_enrich_phd"

// Params configures one enrichment run.
type Params struct {
	Model         string
	PromptVersion string
	MaxAttempts   int
	TriggeredBy   string
}

// Stats summarizes one enrichment run. Failed counts documents, not
// attempts: a document that fails the service call or validation is one
// failure regardless of retries inside the client.
type Stats struct {
	Selected int
	Enriched int
	Skipped  int
	Failed   int
}

// Engine drives the enrichment state machine: select eligible documents,
// call the model once per document, validate, and persist each document's
// outcome in its own transaction. A document failure is recorded and the
// loop moves on; only infrastructure errors outside a document's scope
// abort the run.
type Engine struct {
	pool     db.Pool
	runs     *RunLedger
	attempts *AttemptLedger
	docs     *DocumentStore
	client   ollama.Client
	prompt   *Prompt
	params   Params
	log      *zap.Logger
}

func NewEngine(pool db.Pool, client ollama.Client, prompt *Prompt, params Params) *Engine {
	return &Engine{
		pool:     pool,
		runs:     NewRunLedger(pool),
		attempts: NewAttemptLedger(pool),
		docs:     NewDocumentStore(pool),
		client:   client,
		prompt:   prompt,
		params:   params,
		log:      zap.L().With(zap.String("component", "etl.enrich")),
	}
}

// Run executes one enrichment pass and returns its stats. Per-document
// failures do not make Run return an error; the run itself still finishes
// SUCCESS with the failures counted in Stats and recorded in the ledgers.
func (e *Engine) Run(ctx context.Context) (*Stats, error) {
	runID, err := e.runs.Start(ctx, PipelineEnrich, e.params.TriggeredBy)
	if err != nil {
		return nil, err
	}
	log := e.log.With(zap.String("run_id", runID))
	log.Info("enrichment run started",
		zap.String("model", e.params.Model),
		zap.String("prompt_version", e.params.PromptVersion))

	stats := &Stats{}
	if err := e.processAll(ctx, runID, stats, log); err != nil {
		if finishErr := e.runs.Finish(ctx, runID, model.RunStatusFailed, err.Error()); finishErr != nil {
			log.Error("failed to record run failure", zap.Error(finishErr))
		}
		return stats, err
	}
	if err := e.runs.Finish(ctx, runID, model.RunStatusSuccess, ""); err != nil {
		return stats, err
	}
	log.Info("enrichment run finished",
		zap.Int("selected", stats.Selected),
		zap.Int("enriched", stats.Enriched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (e *Engine) processAll(ctx context.Context, runID string, stats *Stats, log *zap.Logger) error {
	docIDs, err := e.attempts.SelectEligible(ctx, e.params.Model, e.params.PromptVersion, e.params.MaxAttempts)
	if err != nil {
		return err
	}
	stats.Selected = len(docIDs)
	log.Info("documents selected", zap.Int("count", len(docIDs)))

	for _, docID := range docIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := e.processDocument(ctx, runID, docID, log.With(zap.String("document_id", docID)))
		if err != nil {
			return err
		}
		switch outcome {
		case outcomeEnriched:
			stats.Enriched++
		case outcomeSkipped:
			stats.Skipped++
		case outcomeFailed:
			stats.Failed++
		}
	}
	return nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeEnriched
	outcomeFailed
)

// processDocument runs one document through the state machine. A returned
// error is run-fatal: it means the ledgers themselves are unreachable, not
// that this document's enrichment failed.
func (e *Engine) processDocument(ctx context.Context, runID, docID string, log *zap.Logger) (outcome, error) {
	roles, err := e.docs.RolesFor(ctx, docID)
	if err != nil {
		return 0, err
	}
	if len(roles) == 0 {
		log.Info("skipping: no parsed roles")
		return outcomeSkipped, nil
	}

	promptText := e.prompt.Render(roles)
	inputHash := HashText(promptText)

	done, err := e.attempts.HasValidated(ctx, docID, e.params.Model, e.params.PromptVersion, inputHash)
	if err != nil {
		return 0, err
	}
	if done {
		log.Info("skipping: already enriched for this input", zap.String("input_hash", inputHash))
		return outcomeSkipped, nil
	}

	call := model.LLMCall{
		RunID:         runID,
		DocumentID:    docID,
		Model:         e.params.Model,
		PromptVersion: e.params.PromptVersion,
		InputHash:     inputHash,
	}

	call.StartedAt = time.Now().UTC()
	content, svcErr := e.client.Chat(ctx, e.params.Model, promptText)
	call.EndedAt = time.Now().UTC()
	call.LatencyMs = call.EndedAt.Sub(call.StartedAt).Milliseconds()

	if svcErr != nil {
		log.Warn("model call failed", zap.Error(svcErr))
		call.Status = model.CallStatusFailed
		call.ErrorMessage = svcErr.Error()
		e.recordFailure(ctx, call, svcErr.Error(), log)
		return outcomeFailed, nil
	}

	rec, vErr := ValidateResponse(content)
	if vErr != nil {
		log.Warn("model response failed validation", zap.Error(vErr))
		call.Status = model.CallStatusFailed
		call.ResponseText = content
		call.ValidationError = vErr.Error()
		e.recordFailure(ctx, call, "invalid model output: "+vErr.Error(), log)
		return outcomeFailed, nil
	}

	call.Status = model.CallStatusSuccess
	call.Validated = true
	call.ResponseText = content
	call.ResponseJSON = marshalStatus(rec)

	err = db.WithTx(ctx, e.pool, func(tx db.Querier) error {
		callID, err := e.attempts.Record(ctx, tx, call)
		if err != nil {
			return err
		}
		if err := e.docs.UpsertPhDStatus(ctx, tx, docID, runID,
			e.params.Model, e.params.PromptVersion, rec, callID); err != nil {
			return err
		}
		return e.docs.SetStatus(ctx, tx, docID, model.DocumentStatusEnriched, "")
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			if rerr := e.adoptExisting(ctx, runID, docID, call, rec); rerr == nil {
				log.Info("document enriched via concurrent attempt")
				return outcomeEnriched, nil
			} else {
				err = rerr
			}
		}
		log.Warn("failed to persist enrichment", zap.Error(err))
		call.Status = model.CallStatusFailed
		call.Validated = false
		call.ErrorMessage = err.Error()
		e.recordFailure(ctx, call, err.Error(), log)
		return outcomeFailed, nil
	}

	log.Info("document enriched", zap.Int64("latency_ms", call.LatencyMs))
	return outcomeEnriched, nil
}

// adoptExisting handles the unique-violation race: a concurrent writer
// already owns the attempt row for this fingerprint, so reuse its id for
// provenance and redo only the business writes.
func (e *Engine) adoptExisting(ctx context.Context, runID, docID string, call model.LLMCall, rec *model.PhDStatus) error {
	callID, err := e.attempts.ExistingCallID(ctx, docID, call.Model, call.PromptVersion, call.InputHash)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, e.pool, func(tx db.Querier) error {
		if err := e.docs.UpsertPhDStatus(ctx, tx, docID, runID,
			call.Model, call.PromptVersion, rec, callID); err != nil {
			return err
		}
		return e.docs.SetStatus(ctx, tx, docID, model.DocumentStatusEnriched, "")
	})
}

// recordFailure writes the failed attempt and marks the document FAILED in
// a fresh transaction. This is best effort: if even the failure cannot be
// recorded the error is logged and swallowed, never escalated, so one bad
// document cannot abort the run.
func (e *Engine) recordFailure(ctx context.Context, call model.LLMCall, docErr string, log *zap.Logger) {
	err := db.WithTx(ctx, e.pool, func(tx db.Querier) error {
		if _, err := e.attempts.Record(ctx, tx, call); err != nil {
			return err
		}
		return e.docs.SetStatus(ctx, tx, call.DocumentID, model.DocumentStatusFailed, docErr)
	})
	if err != nil {
		log.Error("failed to record document failure", zap.Error(err))
		return
	}
	if used, err := e.attempts.Count(ctx, call.DocumentID, call.Model, call.PromptVersion); err == nil {
		log.Info("attempt budget consumed",
			zap.Int("used", used), zap.Int("max", e.params.MaxAttempts))
	}
}

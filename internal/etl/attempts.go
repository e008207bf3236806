package etl

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

// AttemptLedger reads and writes etl.llm_calls, the durable record of every
// enrichment attempt. One row exists per (document, model, prompt version,
// input hash); the unique constraint is what makes retries converge instead
// of multiplying.
type AttemptLedger struct {
	pool db.Pool
}

func NewAttemptLedger(pool db.Pool) *AttemptLedger {
	return &AttemptLedger{pool: pool}
}

// HasValidated reports whether a validated SUCCESS attempt already exists
// for the exact fingerprint. A true answer means the work is done and the
// document can be skipped without calling the service.
func (l *AttemptLedger) HasValidated(ctx context.Context, docID, modelName, promptVersion, inputHash string) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM etl.llm_calls
		   WHERE document_id = $1 AND model = $2 AND prompt_version = $3
		     AND input_hash_sha256 = $4
		     AND status = 'SUCCESS' AND validated = true
		 )`,
		docID, modelName, promptVersion, inputHash).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "attempts: idempotency check for document %s", docID)
	}
	return exists, nil
}

// Count returns how many attempts for a document have burned budget: FAILED
// rows plus SUCCESS rows that never passed validation.
func (l *AttemptLedger) Count(ctx context.Context, docID, modelName, promptVersion string) (int, error) {
	var n int
	err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM etl.llm_calls
		 WHERE document_id = $1 AND model = $2 AND prompt_version = $3
		   AND (status = 'FAILED' OR (status = 'SUCCESS' AND validated = false))`,
		docID, modelName, promptVersion).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "attempts: count for document %s", docID)
	}
	return n, nil
}

// Record upserts one attempt row keyed by fingerprint and returns its id.
// Re-recording the same fingerprint overwrites the previous outcome; callers
// check HasValidated first, so a validated SUCCESS row is never resubmitted.
func (l *AttemptLedger) Record(ctx context.Context, q db.Querier, call model.LLMCall) (string, error) {
	var callID string
	err := q.QueryRow(ctx,
		`INSERT INTO etl.llm_calls
		   (run_id, document_id, model, prompt_version, input_hash_sha256,
		    status, error_message, started_at, ended_at, latency_ms,
		    response_text, response_json, validated, validation_errors)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10,
		    NULLIF($11, ''), $12, $13, NULLIF($14, ''))
		 ON CONFLICT (document_id, model, prompt_version, input_hash_sha256)
		 DO UPDATE SET
		   run_id = EXCLUDED.run_id,
		   status = EXCLUDED.status,
		   error_message = EXCLUDED.error_message,
		   started_at = EXCLUDED.started_at,
		   ended_at = EXCLUDED.ended_at,
		   latency_ms = EXCLUDED.latency_ms,
		   response_text = EXCLUDED.response_text,
		   response_json = EXCLUDED.response_json,
		   validated = EXCLUDED.validated,
		   validation_errors = EXCLUDED.validation_errors
		 RETURNING llm_call_id`,
		call.RunID, call.DocumentID, call.Model, call.PromptVersion, call.InputHash,
		string(call.Status), call.ErrorMessage, call.StartedAt, call.EndedAt, call.LatencyMs,
		call.ResponseText, call.ResponseJSON, call.Validated, call.ValidationError).
		Scan(&callID)
	if err != nil {
		return "", eris.Wrapf(err, "attempts: record attempt for document %s", call.DocumentID)
	}
	return callID, nil
}

// ExistingCallID re-reads the id of an attempt row after a unique-violation
// race: some concurrent writer got there first, so the row exists.
func (l *AttemptLedger) ExistingCallID(ctx context.Context, docID, modelName, promptVersion, inputHash string) (string, error) {
	var callID string
	err := l.pool.QueryRow(ctx,
		`SELECT llm_call_id FROM etl.llm_calls
		 WHERE document_id = $1 AND model = $2 AND prompt_version = $3
		   AND input_hash_sha256 = $4`,
		docID, modelName, promptVersion, inputHash).Scan(&callID)
	if err != nil {
		return "", eris.Wrapf(err, "attempts: re-read attempt for document %s", docID)
	}
	return callID, nil
}

// SelectEligible returns the ids of documents the enrichment engine should
// process, newest ingested first. PARSED and NEEDS_REVIEW documents are
// always eligible; FAILED documents are retried only while their failed
// attempt count for this model and prompt version is below maxAttempts.
// A SUCCESS row that failed validation counts as an attempt.
func (l *AttemptLedger) SelectEligible(ctx context.Context, modelName, promptVersion string, maxAttempts int) ([]string, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT d.document_id
		 FROM etl.documents d
		 WHERE d.status IN ('PARSED', 'NEEDS_REVIEW')
		    OR (d.status = 'FAILED' AND (
		         SELECT COUNT(*) FROM etl.llm_calls c
		         WHERE c.document_id = d.document_id
		           AND c.model = $1 AND c.prompt_version = $2
		           AND (c.status = 'FAILED'
		                OR (c.status = 'SUCCESS' AND c.validated = false))
		       ) < $3)
		 ORDER BY d.ingested_at DESC`,
		modelName, promptVersion, maxAttempts)
	if err != nil {
		return nil, eris.Wrap(err, "attempts: select eligible documents")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "attempts: scan document id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "attempts: select eligible documents")
	}
	return ids, nil
}

package etl

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

// RunLedger records pipeline executions in etl.runs. Run rows are written
// at the pool level, outside any per-document transaction, so a run that
// dies mid-flight still leaves its RUNNING row behind as evidence.
type RunLedger struct {
	pool db.Pool
}

func NewRunLedger(pool db.Pool) *RunLedger {
	return &RunLedger{pool: pool}
}

// Start opens a new run in RUNNING state and returns its id.
func (l *RunLedger) Start(ctx context.Context, pipeline, triggeredBy string) (string, error) {
	var runID string
	err := l.pool.QueryRow(ctx,
		`INSERT INTO etl.runs (run_id, pipeline_name, triggered_by, status)
		 VALUES ($1, $2, $3, 'RUNNING')
		 RETURNING run_id`,
		uuid.NewString(), pipeline, triggeredBy).Scan(&runID)
	if err != nil {
		return "", eris.Wrapf(err, "runs: start %s", pipeline)
	}
	return runID, nil
}

// Finish closes a run with a terminal status. An empty errMsg is stored
// as NULL.
func (l *RunLedger) Finish(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE etl.runs
		 SET status = $1, finished_at = now(), error_message = NULLIF($2, '')
		 WHERE run_id = $3`,
		string(status), errMsg, runID)
	if err != nil {
		return eris.Wrapf(err, "runs: finish %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("runs: no run with id %s", runID)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (l *RunLedger) List(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT run_id, pipeline_name, triggered_by, status, started_at, finished_at,
		        COALESCE(error_message, '')
		 FROM etl.runs
		 ORDER BY started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runs: list")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(&r.ID, &r.PipelineName, &r.TriggeredBy, &r.Status,
			&r.StartedAt, &r.FinishedAt, &r.ErrorMessage); err != nil {
			return nil, eris.Wrap(err, "runs: scan run")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "runs: list")
	}
	return runs, nil
}

// Get returns a single run by id.
func (l *RunLedger) Get(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	err := l.pool.QueryRow(ctx,
		`SELECT run_id, pipeline_name, triggered_by, status, started_at, finished_at,
		        COALESCE(error_message, '')
		 FROM etl.runs
		 WHERE run_id = $1`, runID).
		Scan(&r.ID, &r.PipelineName, &r.TriggeredBy, &r.Status,
			&r.StartedAt, &r.FinishedAt, &r.ErrorMessage)
	if err != nil {
		return nil, eris.Wrapf(err, "runs: get %s", runID)
	}
	return &r, nil
}

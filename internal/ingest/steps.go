package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

// StepRecorder writes per-step timings into etl.step_metrics. Metrics are
// observability only: a failed metric write is logged and dropped, never
// allowed to fail the step it was measuring.
type StepRecorder struct {
	pool  db.Pool
	runID string
	log   *zap.Logger
}

func NewStepRecorder(pool db.Pool, runID string) *StepRecorder {
	return &StepRecorder{
		pool:  pool,
		runID: runID,
		log:   zap.L().With(zap.String("component", "ingest.steps"), zap.String("run_id", runID)),
	}
}

// Step is an in-flight measurement started by Begin.
type Step struct {
	rec       *StepRecorder
	name      string
	startedAt time.Time
}

func (r *StepRecorder) Begin(name string) *Step {
	return &Step{rec: r, name: name, startedAt: time.Now().UTC()}
}

// Done records a successful step with its row counts.
func (s *Step) Done(ctx context.Context, rowsIn, rowsOut int64) {
	s.write(ctx, "SUCCESS", &rowsIn, &rowsOut, "")
}

// Fail records a failed step with its error.
func (s *Step) Fail(ctx context.Context, err error) {
	s.write(ctx, "FAILED", nil, nil, err.Error())
}

func (s *Step) write(ctx context.Context, status string, rowsIn, rowsOut *int64, errMsg string) {
	m := model.StepMetric{
		RunID:        s.rec.runID,
		StepName:     s.name,
		Status:       status,
		RowsIn:       rowsIn,
		RowsOut:      rowsOut,
		StartedAt:    s.startedAt,
		EndedAt:      time.Now().UTC(),
		ErrorMessage: errMsg,
	}
	_, err := s.rec.pool.Exec(ctx,
		`INSERT INTO etl.step_metrics
		   (run_id, step_name, status, rows_in, rows_out, started_at, ended_at, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))`,
		m.RunID, m.StepName, m.Status, m.RowsIn, m.RowsOut,
		m.StartedAt, m.EndedAt, m.ErrorMessage)
	if err != nil {
		s.rec.log.Warn("failed to record step metric",
			zap.String("step", s.name), zap.Error(err))
	}
}

package etl

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRunLedger_Start(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO etl.runs").
		WithArgs(pgxmock.AnyArg(), "pdf_parse", "manual").
		WillReturnRows(pgxmock.NewRows([]string{"run_id"}).AddRow("run-123"))

	runID, err := NewRunLedger(mock).Start(context.Background(), "pdf_parse", "manual")
	require.NoError(t, err)
	assert.Equal(t, "run-123", runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLedger_Finish(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE etl.runs").
		WithArgs("SUCCESS", "", "run-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewRunLedger(mock).Finish(context.Background(), "run-123", model.RunStatusSuccess, "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLedger_Finish_UnknownRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE etl.runs").
		WithArgs("FAILED", "boom", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewRunLedger(mock).Finish(context.Background(), "missing", model.RunStatusFailed, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run with id")
}

func TestRunLedger_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Now().UTC().Add(-time.Minute)
	finished := time.Now().UTC()
	mock.ExpectQuery("SELECT run_id, pipeline_name").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{
			"run_id", "pipeline_name", "triggered_by", "status", "started_at", "finished_at", "error_message",
		}).
			AddRow("run-2", "llm_enrich_phd", "manual", "SUCCESS", finished, (*time.Time)(nil), "").
			AddRow("run-1", "pdf_parse", "manual", "FAILED", started, &finished, "boom"))

	runs, err := NewRunLedger(mock).List(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, model.RunStatusFailed, runs[1].Status)
	assert.Equal(t, "boom", runs[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLedger_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Now().UTC()
	mock.ExpectQuery("SELECT run_id, pipeline_name").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"run_id", "pipeline_name", "triggered_by", "status", "started_at", "finished_at", "error_message",
		}).AddRow("run-1", "csv_lane", "scheduler", "RUNNING", started, (*time.Time)(nil), ""))

	run, err := NewRunLedger(mock).Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "csv_lane", run.PipelineName)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)
}

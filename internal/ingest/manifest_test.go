package ingest

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

func TestManifestStore_Observe_NewFile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO etl.file_manifest").
		WithArgs("run-1", "data/input/cicli/38/0_students_info.csv", "0_students_info.csv",
			"hash-1", int64(2048)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT status FROM etl.file_manifest").
		WithArgs("hash-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("NEW"))

	status, err := NewManifestStore(mock).Observe(context.Background(),
		"run-1", "data/input/cicli/38/0_students_info.csv", "hash-1", 2048)
	require.NoError(t, err)
	assert.Equal(t, model.ManifestStatusNew, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManifestStore_Observe_KnownFileKeepsStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO etl.file_manifest").
		WithArgs("run-2", "data/input/f.csv", "f.csv", "hash-1", int64(10)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT status FROM etl.file_manifest").
		WithArgs("hash-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("LOADED"))

	status, err := NewManifestStore(mock).Observe(context.Background(),
		"run-2", "data/input/f.csv", "hash-1", 10)
	require.NoError(t, err)
	assert.Equal(t, model.ManifestStatusLoaded, status)
}

func TestManifestStore_Mark(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := int64(42)
	mock.ExpectExec("UPDATE etl.file_manifest").
		WithArgs("LOADED", &rows, "", "hash-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewManifestStore(mock).Mark(context.Background(), "hash-1", model.ManifestStatusLoaded, &rows, "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

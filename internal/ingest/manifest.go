package ingest

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

// ManifestStore tracks input files by content hash in etl.file_manifest.
// A file whose hash is already LOADED or SKIPPED is never reprocessed,
// which is what makes the load lane restartable.
type ManifestStore struct {
	pool db.Pool
}

func NewManifestStore(pool db.Pool) *ManifestStore {
	return &ManifestStore{pool: pool}
}

// Observe registers a file sighting and returns its current manifest
// status. New files are inserted as NEW; known files keep their existing
// status and get their last_seen_at bumped.
func (s *ManifestStore) Observe(ctx context.Context, runID, filePath, fileHash string, fileSize int64) (model.ManifestStatus, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO etl.file_manifest
		   (run_id, file_path, file_name, file_hash_sha256, file_size_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, 'NEW')
		 ON CONFLICT (file_hash_sha256) DO UPDATE SET last_seen_at = now()`,
		runID, filePath, filepath.Base(filePath), fileHash, fileSize)
	if err != nil {
		return "", eris.Wrapf(err, "manifest: observe %s", filePath)
	}

	var status string
	err = s.pool.QueryRow(ctx,
		`SELECT status FROM etl.file_manifest WHERE file_hash_sha256 = $1`,
		fileHash).Scan(&status)
	if err != nil {
		return "", eris.Wrapf(err, "manifest: read status of %s", filePath)
	}
	return model.ManifestStatus(status), nil
}

// Mark records the processing outcome for a file.
func (s *ManifestStore) Mark(ctx context.Context, fileHash string, status model.ManifestStatus, rowsLoaded *int64, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE etl.file_manifest
		 SET status = $1, rows_loaded = $2, error_message = NULLIF($3, '')
		 WHERE file_hash_sha256 = $4`,
		string(status), rowsLoaded, errMsg, fileHash)
	if err != nil {
		return eris.Wrapf(err, "manifest: mark %s as %s", fileHash, status)
	}
	return nil
}

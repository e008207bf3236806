package etl

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

// DocumentStore reads and writes etl.documents and the staging tables that
// hang off a document: extracted pages, parsed roles, and the validated
// business payload in core.phd_status.
type DocumentStore struct {
	pool db.Pool
}

func NewDocumentStore(pool db.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Register inserts a document keyed by its content hash and returns its id.
// Re-registering identical bytes returns the existing id; the second return
// reports whether the document was already known.
func (s *DocumentStore) Register(ctx context.Context, doc model.Document) (string, bool, error) {
	var docID string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO etl.documents
		   (run_id, source_path, file_name, file_hash_sha256, doc_type, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (file_hash_sha256) DO NOTHING
		 RETURNING document_id`,
		doc.RunID, doc.SourcePath, doc.FileName, doc.FileHash, doc.DocType,
		string(doc.Status)).Scan(&docID)
	if err == nil {
		return docID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, eris.Wrapf(err, "documents: register %s", doc.FileName)
	}
	err = s.pool.QueryRow(ctx,
		`SELECT document_id FROM etl.documents WHERE file_hash_sha256 = $1`,
		doc.FileHash).Scan(&docID)
	if err != nil {
		return "", false, eris.Wrapf(err, "documents: look up existing %s", doc.FileName)
	}
	return docID, true, nil
}

// SetStatus updates a document's lifecycle status. An empty errMsg clears
// any previous error.
func (s *DocumentStore) SetStatus(ctx context.Context, q db.Querier, docID string, status model.DocumentStatus, errMsg string) error {
	tag, err := q.Exec(ctx,
		`UPDATE etl.documents
		 SET status = $1, error_message = NULLIF($2, '')
		 WHERE document_id = $3`,
		string(status), errMsg, docID)
	if err != nil {
		return eris.Wrapf(err, "documents: set status of %s", docID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("documents: no document with id %s", docID)
	}
	return nil
}

// RolesFor returns the parsed work-experience roles for a document in
// role-index order. An empty slice means the parse lane found nothing to
// enrich.
func (s *DocumentStore) RolesFor(ctx context.Context, docID string) ([]model.RoleRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role_index, title, COALESCE(company, ''), COALESCE(employment_type, ''),
		        COALESCE(dates, ''), COALESCE(location, '')
		 FROM staging.work_experience_raw
		 WHERE document_id = $1
		 ORDER BY role_index`, docID)
	if err != nil {
		return nil, eris.Wrapf(err, "documents: roles for %s", docID)
	}
	defer rows.Close()

	var roles []model.RoleRecord
	for rows.Next() {
		var r model.RoleRecord
		if err := rows.Scan(&r.RoleIndex, &r.Title, &r.Company, &r.EmploymentType,
			&r.Dates, &r.Location); err != nil {
			return nil, eris.Wrap(err, "documents: scan role")
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "documents: roles for %s", docID)
	}
	return roles, nil
}

// UpsertPhDStatus writes the validated payload for a document, keyed by
// document id and stamped with the LLM call that produced it.
func (s *DocumentStore) UpsertPhDStatus(ctx context.Context, q db.Querier, docID, runID, modelName, promptVersion string, rec *model.PhDStatus, callID string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO core.phd_status
		   (document_id, run_id, is_current_phd, current_employer, current_title,
		    since_month, evidence, model, prompt_version, source_llm_call_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (document_id) DO UPDATE SET
		   run_id = EXCLUDED.run_id,
		   is_current_phd = EXCLUDED.is_current_phd,
		   current_employer = EXCLUDED.current_employer,
		   current_title = EXCLUDED.current_title,
		   since_month = EXCLUDED.since_month,
		   evidence = EXCLUDED.evidence,
		   model = EXCLUDED.model,
		   prompt_version = EXCLUDED.prompt_version,
		   source_llm_call_id = EXCLUDED.source_llm_call_id,
		   updated_at = now()`,
		docID, runID, rec.IsCurrentPhD, rec.CurrentEmployer, rec.CurrentTitle,
		rec.SinceMonth, rec.Evidence, modelName, promptVersion, callID)
	if err != nil {
		return eris.Wrapf(err, "documents: upsert phd status for %s", docID)
	}
	return nil
}

// UpsertPages replaces the extracted page text for a document.
func (s *DocumentStore) UpsertPages(ctx context.Context, runID, docID, sourceFile string, pages []string) (int, error) {
	err := db.WithTx(ctx, s.pool, func(tx db.Querier) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM staging.pdf_pages WHERE document_id = $1`, docID); err != nil {
			return eris.Wrapf(err, "documents: clear pages for %s", docID)
		}
		for i, text := range pages {
			if _, err := tx.Exec(ctx,
				`INSERT INTO staging.pdf_pages
				   (run_id, document_id, source_file, page_number, page_text)
				 VALUES ($1, $2, $3, $4, $5)`,
				runID, docID, sourceFile, i+1, text); err != nil {
				return eris.Wrapf(err, "documents: insert page %d for %s", i+1, docID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// UpsertRoles replaces the parsed role records for a document.
func (s *DocumentStore) UpsertRoles(ctx context.Context, runID, docID, sourceFile string, roles []model.RoleRecord) (int, error) {
	err := db.WithTx(ctx, s.pool, func(tx db.Querier) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM staging.work_experience_raw WHERE document_id = $1`, docID); err != nil {
			return eris.Wrapf(err, "documents: clear roles for %s", docID)
		}
		for _, r := range roles {
			if _, err := tx.Exec(ctx,
				`INSERT INTO staging.work_experience_raw
				   (run_id, document_id, source_file, role_index, title, company,
				    employment_type, dates, location)
				 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''),
				    NULLIF($8, ''), NULLIF($9, ''))`,
				runID, docID, sourceFile, r.RoleIndex, r.Title, r.Company,
				r.EmploymentType, r.Dates, r.Location); err != nil {
				return eris.Wrapf(err, "documents: insert role %d for %s", r.RoleIndex, docID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(roles), nil
}

// marshalStatus serializes the validated payload for the attempt row.
func marshalStatus(rec *model.PhDStatus) []byte {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	return raw
}

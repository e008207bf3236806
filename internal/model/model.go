// Package model defines the persisted entities of the ETL pipeline.
package model

import "time"

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// Run records one end-to-end execution of a pipeline lane.
type Run struct {
	ID           string     `json:"run_id"`
	PipelineName string     `json:"pipeline_name"`
	TriggeredBy  string     `json:"triggered_by"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// DocumentStatus is the lifecycle status of an ingested document.
type DocumentStatus string

const (
	DocumentStatusNew         DocumentStatus = "NEW"
	DocumentStatusParsed      DocumentStatus = "PARSED"
	DocumentStatusEnriched    DocumentStatus = "ENRICHED"
	DocumentStatusNeedsReview DocumentStatus = "NEEDS_REVIEW"
	DocumentStatusFailed      DocumentStatus = "FAILED"
)

// Document is a unit of work with a content-derived identity. Identity comes
// from the SHA-256 of the source file, so re-ingesting identical bytes is a
// no-op.
type Document struct {
	ID           string         `json:"document_id"`
	RunID        string         `json:"run_id"`
	SourcePath   string         `json:"source_path"`
	FileName     string         `json:"file_name"`
	FileHash     string         `json:"file_hash_sha256"`
	DocType      string         `json:"doc_type"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	IngestedAt   time.Time      `json:"ingested_at"`
}

// RoleRecord is one extracted work-experience entry for a document, ordered
// by RoleIndex. Produced by the PDF parse lane, read-only input to enrichment.
type RoleRecord struct {
	RoleIndex      int    `json:"role_index"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	EmploymentType string `json:"employment_type,omitempty"`
	Dates          string `json:"dates"`
	Location       string `json:"location,omitempty"`
}

// CallStatus is the outcome of one LLM call attempt.
type CallStatus string

const (
	CallStatusSuccess CallStatus = "SUCCESS"
	CallStatusFailed  CallStatus = "FAILED"
)

// LLMCall is the durable record of one enrichment attempt. The tuple
// (DocumentID, Model, PromptVersion, InputHash) is unique: re-submitting the
// same fingerprint updates the existing row instead of creating a duplicate.
// A row with Status SUCCESS and Validated true is permanent proof of
// completion for that fingerprint.
type LLMCall struct {
	ID              string     `json:"llm_call_id"`
	RunID           string     `json:"run_id"`
	DocumentID      string     `json:"document_id"`
	Model           string     `json:"model"`
	PromptVersion   string     `json:"prompt_version"`
	InputHash       string     `json:"input_hash_sha256"`
	Status          CallStatus `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         time.Time  `json:"ended_at"`
	LatencyMs       int64      `json:"latency_ms"`
	ResponseText    string     `json:"response_text,omitempty"`
	ResponseJSON    []byte     `json:"response_json,omitempty"`
	Validated       bool       `json:"validated"`
	ValidationError string     `json:"validation_errors,omitempty"`
}

// PhDStatus is the validated business payload, one row per document,
// upserted by document identity and traceable to the LLM call that
// produced it.
type PhDStatus struct {
	IsCurrentPhD    *bool   `json:"is_current_phd"`
	CurrentEmployer *string `json:"current_employer"`
	CurrentTitle    *string `json:"current_title"`
	SinceMonth      *string `json:"since_month"`
	Evidence        string  `json:"evidence"`
}

// StepMetric is one timed step within a run, written for observability.
type StepMetric struct {
	RunID        string    `json:"run_id"`
	StepName     string    `json:"step_name"`
	Status       string    `json:"status"`
	RowsIn       *int64    `json:"rows_in,omitempty"`
	RowsOut      *int64    `json:"rows_out,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ManifestStatus is the processing status of a file in the load manifest.
type ManifestStatus string

const (
	ManifestStatusNew     ManifestStatus = "NEW"
	ManifestStatusLoaded  ManifestStatus = "LOADED"
	ManifestStatusSkipped ManifestStatus = "SKIPPED"
	ManifestStatusFailed  ManifestStatus = "FAILED"
)

// ManifestEntry tracks one input file by content hash across runs.
type ManifestEntry struct {
	RunID        string         `json:"run_id"`
	FilePath     string         `json:"file_path"`
	FileName     string         `json:"file_name"`
	FileHash     string         `json:"file_hash_sha256"`
	FileSize     int64          `json:"file_size_bytes"`
	Status       ManifestStatus `json:"status"`
	RowsLoaded   *int64         `json:"rows_loaded,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

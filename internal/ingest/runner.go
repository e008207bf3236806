package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/etl"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
	"github.com/baratimohammad/2026-DSThesis/internal/ocr"
)

// PipelineParse is the pipeline name stamped on PDF parse runs.
const PipelineParse = "pdf_parse"

// Parser runs the PDF parse lane: discover profile exports, register each
// as a document by content hash, extract page text, and parse the
// experience section into role records. Parsing is deterministic and all
// staging writes are upserts, so re-running over the same files converges.
type Parser struct {
	pool      db.Pool
	runs      *etl.RunLedger
	docs      *etl.DocumentStore
	extractor ocr.Extractor
	inputDir  string
	log       *zap.Logger
}

func NewParser(pool db.Pool, extractor ocr.Extractor, inputDir string) *Parser {
	return &Parser{
		pool:      pool,
		runs:      etl.NewRunLedger(pool),
		docs:      etl.NewDocumentStore(pool),
		extractor: extractor,
		inputDir:  inputDir,
		log:       zap.L().With(zap.String("component", "ingest.parse")),
	}
}

// ParseStats summarizes one parse run.
type ParseStats struct {
	Found       int
	Parsed      int
	NeedsReview int
	Failed      int
}

// Run executes one parse pass. A document that fails extraction or parsing
// is marked FAILED and the loop moves on; only ledger errors abort the run.
func (p *Parser) Run(ctx context.Context, triggeredBy string) (*ParseStats, error) {
	pdfs, err := discoverPDFs(p.inputDir)
	if err != nil {
		return nil, err
	}
	if len(pdfs) == 0 {
		return nil, eris.Errorf("parse: no PDFs found under %s", p.inputDir)
	}

	runID, err := p.runs.Start(ctx, PipelineParse, triggeredBy)
	if err != nil {
		return nil, err
	}
	log := p.log.With(zap.String("run_id", runID))
	log.Info("pdf parse run started", zap.Int("files", len(pdfs)))

	steps := NewStepRecorder(p.pool, runID)
	discover := steps.Begin("pdf_discover")
	discover.Done(ctx, int64(len(pdfs)), int64(len(pdfs)))

	stats := &ParseStats{Found: len(pdfs)}
	if err := p.processAll(ctx, runID, pdfs, steps, stats, log); err != nil {
		if finishErr := p.runs.Finish(ctx, runID, model.RunStatusFailed, err.Error()); finishErr != nil {
			log.Error("failed to record run failure", zap.Error(finishErr))
		}
		return stats, err
	}

	if err := p.runs.Finish(ctx, runID, model.RunStatusSuccess, ""); err != nil {
		return stats, err
	}
	log.Info("pdf parse run finished",
		zap.Int("found", stats.Found),
		zap.Int("parsed", stats.Parsed),
		zap.Int("needs_review", stats.NeedsReview),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (p *Parser) processAll(ctx context.Context, runID string, pdfs []string, steps *StepRecorder, stats *ParseStats, log *zap.Logger) error {
	for _, pdfPath := range pdfs {
		if err := ctx.Err(); err != nil {
			return err
		}

		fileHash, err := etl.HashFile(pdfPath)
		if err != nil {
			return err
		}
		docID, _, err := p.docs.Register(ctx, model.Document{
			RunID:      runID,
			SourcePath: pdfPath,
			FileName:   filepath.Base(pdfPath),
			FileHash:   fileHash,
			DocType:    "pdf",
			Status:     model.DocumentStatusNew,
		})
		if err != nil {
			return err
		}

		p.processDocument(ctx, runID, docID, pdfPath, steps, stats,
			log.With(zap.String("document_id", docID), zap.String("file", pdfPath)))
	}
	return nil
}

func (p *Parser) processDocument(ctx context.Context, runID, docID, pdfPath string, steps *StepRecorder, stats *ParseStats, log *zap.Logger) {
	sourceFile := filepath.Base(pdfPath)

	extract := steps.Begin("pdf_extract_pages:" + sourceFile)
	text, err := p.extractor.ExtractText(ctx, pdfPath)
	if err == nil {
		pages := SplitPages(text)
		if _, uerr := p.docs.UpsertPages(ctx, runID, docID, sourceFile, pages); uerr != nil {
			err = uerr
		} else {
			extract.Done(ctx, int64(len(pages)), int64(len(pages)))
		}
	}
	if err != nil {
		log.Warn("page extraction failed", zap.Error(err))
		extract.Fail(ctx, err)
		p.markFailed(ctx, docID, err, log)
		stats.Failed++
		return
	}

	parse := steps.Begin("pdf_parse_experience:" + sourceFile)
	roles := ParseProfileText(text)
	if _, err := p.docs.UpsertRoles(ctx, runID, docID, sourceFile, roles); err != nil {
		log.Warn("role upsert failed", zap.Error(err))
		parse.Fail(ctx, err)
		p.markFailed(ctx, docID, err, log)
		stats.Failed++
		return
	}
	parse.Done(ctx, int64(len(roles)), int64(len(roles)))

	if len(roles) == 0 {
		// Not necessarily a failure; flag for inspection.
		if err := p.docs.SetStatus(ctx, p.pool, docID, model.DocumentStatusNeedsReview,
			"No roles parsed from Experience section"); err != nil {
			log.Error("failed to set document status", zap.Error(err))
			stats.Failed++
			return
		}
		stats.NeedsReview++
		return
	}

	if err := p.docs.SetStatus(ctx, p.pool, docID, model.DocumentStatusParsed, ""); err != nil {
		log.Error("failed to set document status", zap.Error(err))
		stats.Failed++
		return
	}
	log.Info("document parsed", zap.Int("roles", len(roles)))
	stats.Parsed++
}

func (p *Parser) markFailed(ctx context.Context, docID string, cause error, log *zap.Logger) {
	if err := p.docs.SetStatus(ctx, p.pool, docID, model.DocumentStatusFailed, cause.Error()); err != nil {
		log.Error("failed to record document failure", zap.Error(err))
	}
}

// discoverPDFs walks the input dir recursively and returns all .pdf files
// in sorted order.
func discoverPDFs(dir string) ([]string, error) {
	var pdfs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			pdfs = append(pdfs, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "parse: discover PDFs under %s", dir)
	}
	sort.Strings(pdfs)
	return pdfs, nil
}

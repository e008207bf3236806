package ingest

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/baratimohammad/2026-DSThesis/internal/db"
	"github.com/baratimohammad/2026-DSThesis/internal/etl"
	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

// EmptyMarker is the sentinel the program office puts in exports that
// contain no data. Files carrying it are skipped, not loaded.
const EmptyMarker = "Nessun dato disponibile nella tabella"

// PipelineLoad is the pipeline name stamped on CSV load runs.
const PipelineLoad = "csv_lane"

var (
	matricolaRe = regexp.MustCompile(`/(\d+)_`)
	cicloRe     = regexp.MustCompile(`/cicli/(\d+)/`)
)

// ColumnSpec maps one CSV header to a staging column. Source headers not
// present in a given file load as NULL.
type ColumnSpec struct {
	Source string
	Target string
}

// StageSpec describes one family of CSV exports and the staging table that
// receives them.
type StageSpec struct {
	Name      string
	Pattern   string // glob, relative to the input dir
	Delimiter rune
	Table     string // table in the staging schema
	Columns   []ColumnSpec
	// PathIdentity adds matricola and ciclo columns extracted from the
	// file path for per-candidate exports.
	PathIdentity bool
}

// StageSpecs is the set of export families the load lane understands.
var StageSpecs = []StageSpec{
	{
		Name:      "students",
		Pattern:   "cicli/*/0_students_info.csv",
		Delimiter: ';',
		Table:     "students",
		Columns: []ColumnSpec{
			{"Matricola dottorando/a:", "matricola_dottorando"},
			{"Email", "email"},
			{"Cognome", "cognome"},
			{"Nome", "nome"},
			{"Ciclo", "ciclo"},
			{"Tutore", "tutore"},
			{"Status", "status"},
			{"Ore Soft Skills", "ore_soft_skills"},
			{"Ore Hard Skills", "ore_hard_skills"},
			{"Punti totali", "punti_totali"},
		},
	},
	{
		Name:         "attivita_interne",
		Pattern:      "cicli/*/*_attivita_formative_interne.csv",
		Delimiter:    ',',
		Table:        "attivita_formative_interne",
		PathIdentity: true,
		Columns: []ColumnSpec{
			{"Denominazione", "denominazione"},
			{"Ore riconosciute", "ore_riconosciute"},
			{"Punti", "punti"},
			{"Tipo form.", "tipo_form"},
			{"Data attività", "data_attivita"},
		},
	},
	{
		Name:         "attivita_esterne",
		Pattern:      "cicli/*/*_attivita_formative_esterne.csv",
		Delimiter:    '\t',
		Table:        "attivita_formative_esterne",
		PathIdentity: true,
		Columns: []ColumnSpec{
			{"Denominazione", "denominazione"},
			{"Ore dichiarate", "ore_dichiarate"},
			{"Ore riconosciute", "ore_riconosciute"},
			{"Punti", "punti"},
			{"Tipo form.", "tipo_form"},
			{"Data attività", "data_attivita"},
		},
	},
	{
		Name:         "pubblicazioni",
		Pattern:      "cicli/*/*_pubblicazioni.csv",
		Delimiter:    '\t',
		Table:        "pubblicazioni",
		PathIdentity: true,
		Columns: []ColumnSpec{
			{"Titolo", "titolo"},
			{"Rivista", "rivista"},
			{"Anno", "anno"},
			{"Tipo", "tipo"},
			{"Stato", "stato"},
		},
	},
}

// Loader runs the CSV load lane: discover export files, skip the ones the
// manifest already accounts for, and bulk-copy the rest into staging.
type Loader struct {
	pool     db.Pool
	runs     *etl.RunLedger
	manifest *ManifestStore
	inputDir string
	specs    []StageSpec
	log      *zap.Logger
}

func NewLoader(pool db.Pool, inputDir string, specs []StageSpec) *Loader {
	return &Loader{
		pool:     pool,
		runs:     etl.NewRunLedger(pool),
		manifest: NewManifestStore(pool),
		inputDir: inputDir,
		specs:    specs,
		log:      zap.L().With(zap.String("component", "ingest.csvload")),
	}
}

// LoadStats summarizes one load run.
type LoadStats struct {
	Files   int
	Loaded  int
	Skipped int
	Rows    int64
}

// Run executes one load pass over every spec. A file that fails to load is
// marked FAILED in the manifest and fails the run; already-loaded and
// empty-marker files are skipped.
func (l *Loader) Run(ctx context.Context, triggeredBy string) (*LoadStats, error) {
	runID, err := l.runs.Start(ctx, PipelineLoad, triggeredBy)
	if err != nil {
		return nil, err
	}
	log := l.log.With(zap.String("run_id", runID))
	log.Info("csv load run started", zap.String("input_dir", l.inputDir))

	stats := &LoadStats{}
	steps := NewStepRecorder(l.pool, runID)
	for _, spec := range l.specs {
		if err := l.runSpec(ctx, runID, spec, steps, stats, log); err != nil {
			if finishErr := l.runs.Finish(ctx, runID, model.RunStatusFailed, err.Error()); finishErr != nil {
				log.Error("failed to record run failure", zap.Error(finishErr))
			}
			return stats, err
		}
	}

	if err := l.runs.Finish(ctx, runID, model.RunStatusSuccess, ""); err != nil {
		return stats, err
	}
	log.Info("csv load run finished",
		zap.Int("files", stats.Files),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
		zap.Int64("rows", stats.Rows))
	return stats, nil
}

func (l *Loader) runSpec(ctx context.Context, runID string, spec StageSpec, steps *StepRecorder, stats *LoadStats, log *zap.Logger) error {
	files, err := filepath.Glob(filepath.Join(l.inputDir, spec.Pattern))
	if err != nil {
		return eris.Wrapf(err, "csvload: glob %s", spec.Pattern)
	}
	sort.Strings(files)

	step := steps.Begin("csv_load:" + spec.Name)
	var rowsOut int64
	for _, path := range files {
		stats.Files++
		n, loaded, err := l.loadFile(ctx, runID, spec, path, log)
		if err != nil {
			step.Fail(ctx, err)
			return err
		}
		if loaded {
			stats.Loaded++
			stats.Rows += n
			rowsOut += n
		} else {
			stats.Skipped++
		}
	}
	step.Done(ctx, int64(len(files)), rowsOut)
	return nil
}

// loadFile stages one CSV file. The bool return reports whether rows were
// actually copied, as opposed to the file being skipped.
func (l *Loader) loadFile(ctx context.Context, runID string, spec StageSpec, path string, log *zap.Logger) (int64, bool, error) {
	fileHash, err := etl.HashFile(path)
	if err != nil {
		return 0, false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, false, eris.Wrapf(err, "csvload: stat %s", path)
	}

	status, err := l.manifest.Observe(ctx, runID, path, fileHash, info.Size())
	if err != nil {
		return 0, false, err
	}
	if status == model.ManifestStatusLoaded || status == model.ManifestStatusSkipped {
		log.Debug("file already accounted for", zap.String("file", path), zap.String("status", string(status)))
		return 0, false, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false, eris.Wrapf(err, "csvload: read %s", path)
	}
	if strings.Contains(strings.ToLower(string(raw)), strings.ToLower(EmptyMarker)) {
		zero := int64(0)
		if err := l.manifest.Mark(ctx, fileHash, model.ManifestStatusSkipped, &zero, "Empty marker detected"); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	rows, err := stageRows(spec, runID, path, string(raw))
	if err != nil {
		markErr := l.manifest.Mark(ctx, fileHash, model.ManifestStatusFailed, nil, err.Error())
		if markErr != nil {
			log.Error("failed to mark manifest", zap.Error(markErr))
		}
		return 0, false, err
	}
	if len(rows) == 0 {
		zero := int64(0)
		if err := l.manifest.Mark(ctx, fileHash, model.ManifestStatusSkipped, &zero, "No rows after transform"); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	columns := stageColumns(spec)
	n, err := db.CopyFromSchema(ctx, l.pool, "staging", spec.Table, columns, rows)
	if err != nil {
		markErr := l.manifest.Mark(ctx, fileHash, model.ManifestStatusFailed, nil, err.Error())
		if markErr != nil {
			log.Error("failed to mark manifest", zap.Error(markErr))
		}
		return 0, false, err
	}

	if err := l.manifest.Mark(ctx, fileHash, model.ManifestStatusLoaded, &n, ""); err != nil {
		return 0, false, err
	}
	log.Info("file loaded", zap.String("file", path), zap.String("table", spec.Table), zap.Int64("rows", n))
	return n, true, nil
}

// stageColumns returns the staging column list for a spec, in copy order.
func stageColumns(spec StageSpec) []string {
	columns := []string{"run_id", "source_file"}
	if spec.PathIdentity {
		columns = append(columns, "matricola", "ciclo")
	}
	for _, c := range spec.Columns {
		columns = append(columns, c.Target)
	}
	return columns
}

// stageRows parses CSV content into copy rows matching stageColumns order.
// Source headers missing from the file load as NULL.
func stageRows(spec StageSpec, runID, path, content string) ([][]any, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = spec.Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "csvload: parse %s", path)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}

	var matricola, ciclo any
	if spec.PathIdentity {
		matricola = extractPathGroup(matricolaRe, path)
		ciclo = extractPathGroup(cicloRe, path)
	}

	rows := make([][]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := []any{runID, path}
		if spec.PathIdentity {
			row = append(row, matricola, ciclo)
		}
		for _, c := range spec.Columns {
			idx, ok := colIdx[c.Source]
			if !ok || idx >= len(rec) {
				row = append(row, nil)
				continue
			}
			row = append(row, strings.TrimSpace(rec[idx]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func extractPathGroup(re *regexp.Regexp, path string) any {
	if m := re.FindStringSubmatch(filepath.ToSlash(path)); m != nil {
		return m[1]
	}
	return nil
}

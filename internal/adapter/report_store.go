package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"gooze.dev/pkg/testbench/internal/coverage"
	m "gooze.dev/pkg/testbench/internal/model"
)

// ErrRunNotFound is returned when a store has no matching run.
var ErrRunNotFound = errors.New("run not found")

// ProgramResult is the coverage reached by one program in a run.
type ProgramResult struct {
	Program  string
	Coverage coverage.Set
	// Kept is false when the program was pruned as redundant.
	Kept bool
}

// Run is the persisted outcome of one analysis.
type Run struct {
	ID       string
	Started  time.Time
	Programs []ProgramResult
	Reports  []m.UnitReport
}

// RunSummary describes a stored run.
type RunSummary struct {
	ID       string
	Started  time.Time
	Programs int
	Units    int
}

// ReportStore persists analysis runs.
//
//go:generate mockery --name=ReportStore --output=./mocks --outpkg=mocks
type ReportStore interface {
	SaveRun(ctx context.Context, run Run) (string, error)
	LoadRun(ctx context.Context, id string) (Run, error)
	LatestRun(ctx context.Context) (Run, error)
	ListRuns(ctx context.Context) ([]RunSummary, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS coverage (
	run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq     INTEGER NOT NULL,
	program TEXT NOT NULL,
	kept    INTEGER NOT NULL,
	data    BLOB NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS unit_reports (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	program     TEXT NOT NULL,
	unit        TEXT NOT NULL,
	status      INTEGER NOT NULL,
	reason      TEXT NOT NULL,
	max_mutants INTEGER NOT NULL,
	baseline    INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS mutant_outcomes (
	run_id   TEXT NOT NULL,
	report   INTEGER NOT NULL,
	idx      INTEGER NOT NULL,
	status   INTEGER NOT NULL,
	elapsed  INTEGER NOT NULL,
	diff     TEXT NOT NULL,
	PRIMARY KEY (run_id, report, idx),
	FOREIGN KEY (run_id, report) REFERENCES unit_reports(run_id, seq) ON DELETE CASCADE
);
`

// OpenSQLite opens the database at path with the pragmas the store relies on.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// SQLiteReportStore stores runs in an SQLite database.
type SQLiteReportStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteReportStore opens (creating if needed) the store at path.
func NewSQLiteReportStore(path string) (*SQLiteReportStore, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteReportStore{db: db, now: time.Now}, nil
}

// Close implements ReportStore.
func (s *SQLiteReportStore) Close() error {
	return s.db.Close()
}

// SaveRun implements ReportStore. A run without an ID gets a new UUID; a
// zero start time is set to now.
func (s *SQLiteReportStore) SaveRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	if run.Started.IsZero() {
		run.Started = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := saveRun(ctx, tx, run); err != nil {
		_ = tx.Rollback()

		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}

	return run.ID, nil
}

func saveRun(ctx context.Context, tx *sql.Tx, run Run) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`, run.ID, run.Started.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for seq, p := range run.Programs {
		data, err := p.Coverage.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode coverage of %s: %w", p.Program, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO coverage (run_id, seq, program, kept, data) VALUES (?, ?, ?, ?, ?)`,
			run.ID, seq, p.Program, p.Kept, data,
		); err != nil {
			return fmt.Errorf("failed to insert coverage of %s: %w", p.Program, err)
		}
	}

	for seq, r := range run.Reports {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unit_reports (run_id, seq, program, unit, status, reason, max_mutants, baseline) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, seq, r.Program, r.Unit, int(r.Status), r.Reason, r.MaxMutants, int64(r.Baseline),
		); err != nil {
			return fmt.Errorf("failed to insert report of %s: %w", r.Unit, err)
		}

		for _, o := range r.Outcomes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO mutant_outcomes (run_id, report, idx, status, elapsed, diff) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, seq, o.Index, int(o.Status), int64(o.Elapsed), o.Diff,
			); err != nil {
				return fmt.Errorf("failed to insert mutant %d of %s: %w", o.Index, r.Unit, err)
			}
		}
	}

	return nil
}

// LatestRun implements ReportStore.
func (s *SQLiteReportStore) LatestRun(ctx context.Context) (Run, error) {
	var id string

	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}

	if err != nil {
		return Run{}, fmt.Errorf("failed to find latest run: %w", err)
	}

	return s.LoadRun(ctx, id)
}

// LoadRun implements ReportStore.
func (s *SQLiteReportStore) LoadRun(ctx context.Context, id string) (Run, error) {
	run := Run{ID: id}

	var started int64

	err := s.db.QueryRowContext(ctx, `SELECT started_at FROM runs WHERE id = ?`, id).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}

	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	run.Started = time.UnixMilli(started)

	if run.Programs, err = s.loadPrograms(ctx, id); err != nil {
		return Run{}, err
	}

	if run.Reports, err = s.loadReports(ctx, id); err != nil {
		return Run{}, err
	}

	return run, nil
}

func (s *SQLiteReportStore) loadPrograms(ctx context.Context, id string) ([]ProgramResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT program, kept, data FROM coverage WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage of run %s: %w", id, err)
	}
	defer rows.Close()

	var programs []ProgramResult

	for rows.Next() {
		var (
			p    ProgramResult
			data []byte
		)

		if err := rows.Scan(&p.Program, &p.Kept, &data); err != nil {
			return nil, fmt.Errorf("failed to scan coverage: %w", err)
		}

		if p.Coverage, err = coverage.UnmarshalSet(data); err != nil {
			return nil, fmt.Errorf("failed to decode coverage of %s: %w", p.Program, err)
		}

		programs = append(programs, p)
	}

	return programs, rows.Err()
}

func (s *SQLiteReportStore) loadReports(ctx context.Context, id string) ([]m.UnitReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, program, unit, status, reason, max_mutants, baseline FROM unit_reports WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports of run %s: %w", id, err)
	}

	var (
		reports []m.UnitReport
		seqs    []int
	)

	for rows.Next() {
		var (
			r        m.UnitReport
			seq      int
			status   int
			baseline int64
		)

		if err := rows.Scan(&seq, &r.Program, &r.Unit, &status, &r.Reason, &r.MaxMutants, &baseline); err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		r.Status = m.UnitStatus(status)
		r.Baseline = m.Elapsed(baseline)
		reports = append(reports, r)
		seqs = append(seqs, seq)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i, seq := range seqs {
		outcomes, err := s.loadOutcomes(ctx, id, seq, reports[i].Unit)
		if err != nil {
			return nil, err
		}

		reports[i].Outcomes = outcomes
	}

	return reports, nil
}

func (s *SQLiteReportStore) loadOutcomes(ctx context.Context, id string, seq int, unit string) ([]m.MutantOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, status, elapsed, diff FROM mutant_outcomes WHERE run_id = ? AND report = ? ORDER BY idx`, id, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes of %s: %w", unit, err)
	}
	defer rows.Close()

	var outcomes []m.MutantOutcome

	for rows.Next() {
		var (
			o       m.MutantOutcome
			status  int
			elapsed int64
		)

		if err := rows.Scan(&o.Index, &status, &elapsed, &o.Diff); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		o.Unit = unit
		o.Status = m.MutantStatus(status)
		o.Elapsed = m.Elapsed(elapsed)
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// ListRuns implements ReportStore, newest first.
func (s *SQLiteReportStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at,
			(SELECT COUNT(*) FROM coverage c WHERE c.run_id = r.id),
			(SELECT COUNT(*) FROM unit_reports u WHERE u.run_id = r.id)
		FROM runs r ORDER BY r.started_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary

	for rows.Next() {
		var (
			sum     RunSummary
			started int64
		)

		if err := rows.Scan(&sum.ID, &started, &sum.Programs, &sum.Units); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		sum.Started = time.UnixMilli(started)
		runs = append(runs, sum)
	}

	return runs, rows.Err()
}

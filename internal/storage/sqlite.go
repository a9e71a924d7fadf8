// Package storage persists completed pipeline runs. The pipeline itself
// never writes here; persistence is a caller decision (the CLI's --db flag).
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"docuform/internal/schema"
	"docuform/internal/validate"
)

// ErrRunNotFound indicates the requested run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// StoredRun is one persisted pipeline run.
type StoredRun struct {
	ID         string
	SourceName string
	CreatedAt  time.Time
	Result     *schema.AnalysisResult
	Template   *schema.Template
	Bindings   []schema.DataBinding
	Report     *validate.Report
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	ID         string
	SourceName string
	CreatedAt  time.Time
	Success    bool
	Score      int
}

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source_name TEXT,
			created_at TIMESTAMP,
			success INTEGER,
			score INTEGER,
			result JSON,
			template JSON,
			bindings JSON,
			report JSON
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun upserts one run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *StoredRun) error {
	result, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	template, err := json.Marshal(run.Template)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	bindings, err := json.Marshal(run.Bindings)
	if err != nil {
		return fmt.Errorf("marshal bindings: %w", err)
	}
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	success := 0
	if run.Result != nil && run.Result.Success {
		success = 1
	}
	score := 0
	if run.Report != nil {
		score = run.Report.Score
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source_name, created_at, success, score, result, template, bindings, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_name=excluded.source_name,
			created_at=excluded.created_at,
			success=excluded.success,
			score=excluded.score,
			result=excluded.result,
			template=excluded.template,
			bindings=excluded.bindings,
			report=excluded.report
	`, run.ID, run.SourceName, run.CreatedAt, success, score, result, template, bindings, report)
	return err
}

// GetRun loads one run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*StoredRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_name, created_at, result, template, bindings, report
		FROM runs WHERE id = ?`, id)

	var run StoredRun
	var result, template, bindings, report []byte
	err := row.Scan(&run.ID, &run.SourceName, &run.CreatedAt, &result, &template, &bindings, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(result, &run.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	if err := json.Unmarshal(template, &run.Template); err != nil {
		return nil, fmt.Errorf("unmarshal template: %w", err)
	}
	if err := json.Unmarshal(bindings, &run.Bindings); err != nil {
		return nil, fmt.Errorf("unmarshal bindings: %w", err)
	}
	if err := json.Unmarshal(report, &run.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &run, nil
}

// GetTemplate loads just the template of a run.
func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*schema.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT template FROM runs WHERE id = ?`, id)
	var raw []byte
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	var t schema.Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unmarshal template: %w", err)
	}
	return &t, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_name, created_at, success, score
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var success int
		if err := rows.Scan(&r.ID, &r.SourceName, &r.CreatedAt, &success, &r.Score); err != nil {
			return nil, err
		}
		r.Success = success == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// Package store persists analysis runs into SQLite for the dashboard.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/phobologic/impactscan/internal/aggregate"
	"github.com/phobologic/impactscan/internal/effort"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	transcript TEXT NOT NULL,
	terms TEXT NOT NULL,
	lines_read INTEGER NOT NULL,
	invalid_format INTEGER NOT NULL,
	critical INTEGER NOT NULL,
	discarded INTEGER NOT NULL,
	unclassified INTEGER NOT NULL,
	dev_hours REAL NOT NULL,
	test_hours REAL NOT NULL,
	total_with_buffer REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS criticos (
	run_id TEXT NOT NULL REFERENCES runs(id),
	arquivo TEXT NOT NULL,
	tipo_programa TEXT NOT NULL,
	prefixo TEXT NOT NULL,
	classe_arquivo TEXT NOT NULL,
	localizador TEXT NOT NULL,
	termos TEXT NOT NULL,
	categoria TEXT NOT NULL,
	padrao TEXT NOT NULL,
	justificativa TEXT NOT NULL,
	codigo TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_criticos_run ON criticos(run_id);

CREATE TABLE IF NOT EXISTS descartes (
	run_id TEXT NOT NULL REFERENCES runs(id),
	arquivo TEXT NOT NULL,
	tipo_programa TEXT NOT NULL,
	prefixo TEXT NOT NULL,
	classe_arquivo TEXT NOT NULL,
	localizador TEXT NOT NULL,
	termos TEXT NOT NULL,
	motivo_descarte TEXT NOT NULL,
	codigo TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_descartes_run ON descartes(run_id);

CREATE TABLE IF NOT EXISTS sem_classificacao (
	run_id TEXT NOT NULL REFERENCES runs(id),
	arquivo TEXT NOT NULL,
	prefixo TEXT NOT NULL,
	classe_arquivo TEXT NOT NULL,
	localizador TEXT NOT NULL,
	termo_encontrado TEXT NOT NULL,
	codigo TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sem_classificacao_run ON sem_classificacao(run_id);

CREATE TABLE IF NOT EXISTS precificacao (
	run_id TEXT NOT NULL REFERENCES runs(id),
	item TEXT NOT NULL,
	tipo TEXT NOT NULL,
	ocorrencias INTEGER,
	horas_dev REAL NOT NULL,
	horas_teste REAL NOT NULL,
	total_horas REAL NOT NULL,
	justificativa TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_precificacao_run ON precificacao(run_id);
`

// Store is an open results database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Inputs names the files a run was computed from.
type Inputs struct {
	Transcript string
	Terms      string
}

// SaveRun stores a run and its tables in one transaction and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, in Inputs, res aggregate.Result, est effort.Estimate) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, transcript, terms, lines_read, invalid_format,
			critical, discarded, unclassified, dev_hours, test_hours, total_with_buffer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), in.Transcript, in.Terms, res.Stats.LinesRead, res.Stats.InvalidFormat,
		len(res.Critical), len(res.Discarded), len(res.Unclassified),
		est.Summary.DevHours, est.Summary.TestHours, est.Summary.TotalWithBuffer)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	if err := insertAll(ctx, tx, "criticos", 11, len(res.Critical), func(i int) []any {
		r := &res.Critical[i]
		return []any{id, r.File, r.ProgramType, r.Prefix, string(r.FileClass), r.Locator,
			strings.Join(r.Terms, ", "), r.Category.String(), r.Pattern, r.Rationale, r.Code}
	}); err != nil {
		return "", err
	}
	if err := insertAll(ctx, tx, "descartes", 9, len(res.Discarded), func(i int) []any {
		r := &res.Discarded[i]
		return []any{id, r.File, r.ProgramType, r.Prefix, string(r.FileClass), r.Locator,
			strings.Join(r.Terms, ", "), r.Reason.String(), r.Code}
	}); err != nil {
		return "", err
	}
	if err := insertAll(ctx, tx, "sem_classificacao", 7, len(res.Unclassified), func(i int) []any {
		r := &res.Unclassified[i]
		return []any{id, r.File, r.Prefix, string(r.FileClass), r.Locator, strings.Join(r.Terms, ", "), r.Code}
	}); err != nil {
		return "", err
	}
	if err := insertAll(ctx, tx, "precificacao", 8, len(est.Detail), func(i int) []any {
		r := est.Detail[i]
		var occ any
		if r.Type == effort.TypeScaled {
			occ = r.Occurrences
		}
		return []any{id, r.Name, r.Type, occ, r.DevHours, r.TestHours, r.TotalHours, r.Rationale}
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

func insertAll(ctx context.Context, tx *sql.Tx, table string, cols, n int, row func(int) []any) error {
	if n == 0 {
		return nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", cols), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, marks))
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

// Run is a stored run summary.
type Run struct {
	ID              string
	CreatedAt       time.Time
	Transcript      string
	Terms           string
	Critical        int
	Discarded       int
	Unclassified    int
	TotalWithBuffer float64
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, transcript, terms, critical, discarded, unclassified, total_with_buffer
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Transcript, &r.Terms,
			&r.Critical, &r.Discarded, &r.Unclassified, &r.TotalWithBuffer); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of rows of table stored for runID.
func (s *Store) Count(ctx context.Context, table, runID string) (int, error) {
	switch table {
	case "criticos", "descartes", "sem_classificacao", "precificacao":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/exposure-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	params      TEXT NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	hazard_label TEXT NOT NULL,
	unit_id      TEXT NOT NULL DEFAULT '',
	population   REAL NOT NULL,
	no_data_only INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_errors (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	label   TEXT NOT NULL,
	stage   TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
CREATE INDEX IF NOT EXISTS idx_run_errors_run_id ON run_errors(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.RunKind, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, params, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(kind), string(model.RunStatusRunning), string(paramsJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Status:    model.RunStatusRunning,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, rows []model.ExposureRow, errs []model.UnitError) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_results (run_id, hazard_label, unit_id, population, no_data_only) VALUES (?, ?, ?, ?, ?)`,
			runID, row.Label, row.UnitID, row.Population, row.NoDataOnly,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert result")
		}
	}
	for _, ue := range errs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_errors (run_id, label, stage, message) VALUES (?, ?, ?, ?)`,
			runID, ue.Label, ue.Stage, ue.Message(),
		); err != nil {
			return eris.Wrap(err, "sqlite: insert error")
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, row_count = ?, error_count = ?, updated_at = ? WHERE id = ?`,
		string(status), len(rows), len(errs), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, params, row_count, error_count, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	sqlStr := `SELECT id, kind, status, params, row_count, error_count, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	if filter.Kind != "" {
		sqlStr += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		sqlStr += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	sqlStr += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		sqlStr += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]model.ExposureRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hazard_label, unit_id, population, no_data_only FROM run_results WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var out []model.ExposureRow
	for rows.Next() {
		var r model.ExposureRow
		if err := rows.Scan(&r.Label, &r.UnitID, &r.Population, &r.NoDataOnly); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	var r model.Run
	var kind, status, paramsJSON string
	if err := sc.Scan(&r.ID, &kind, &status, &paramsJSON, &r.RowCount, &r.ErrorCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrap(err, "sqlite: run not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Kind = model.RunKind(kind)
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal params")
	}
	return &r, nil
}

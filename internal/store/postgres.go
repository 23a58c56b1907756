package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/exposure-cli/internal/db"
	"github.com/sells-group/exposure-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Result rows go in through
// the COPY protocol since by-geo runs can produce many of them.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; tests inject mocks here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	params      JSONB NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	hazard_label TEXT NOT NULL,
	unit_id      TEXT NOT NULL DEFAULT '',
	population   DOUBLE PRECISION NOT NULL,
	no_data_only BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS run_errors (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	label   TEXT NOT NULL,
	stage   TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
CREATE INDEX IF NOT EXISTS idx_run_errors_run_id ON run_errors(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.RunKind, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, status, params, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(kind), string(model.RunStatusRunning), paramsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, rows []model.ExposureRow, errs []model.UnitError) error {
	resultRows := make([][]any, 0, len(rows))
	for _, row := range rows {
		resultRows = append(resultRows, []any{runID, row.Label, row.UnitID, row.Population, row.NoDataOnly})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "run_results",
		[]string{"run_id", "hazard_label", "unit_id", "population", "no_data_only"}, resultRows); err != nil {
		return err
	}

	errRows := make([][]any, 0, len(errs))
	for _, ue := range errs {
		errRows = append(errRows, []any{runID, ue.Label, ue.Stage, ue.Message()})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "run_errors",
		[]string{"run_id", "label", "stage", "message"}, errRows); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, row_count = $2, error_count = $3, updated_at = $4 WHERE id = $5`,
		string(status), len(rows), len(errs), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, status, params, row_count, error_count, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(err, "postgres: run %s not found", runID)
		}
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	sqlStr := `SELECT id, kind, status, params, row_count, error_count, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		sqlStr += ` AND kind = $1`
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sqlStr += ` AND status = $` + strconv.Itoa(len(args))
	}
	sqlStr += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sqlStr += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) ListResults(ctx context.Context, runID string) ([]model.ExposureRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT hazard_label, unit_id, population, no_data_only FROM run_results WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var out []model.ExposureRow
	for rows.Next() {
		var r model.ExposureRow
		if err := rows.Scan(&r.Label, &r.UnitID, &r.Population, &r.NoDataOnly); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate results")
}

func scanPgRun(sc interface{ Scan(...any) error }) (*model.Run, error) {
	var r model.Run
	var kind, status string
	var paramsJSON []byte
	if err := sc.Scan(&r.ID, &kind, &status, &paramsJSON, &r.RowCount, &r.ErrorCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Kind = model.RunKind(kind)
	r.Status = model.RunStatus(status)
	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal params")
	}
	return &r, nil
}

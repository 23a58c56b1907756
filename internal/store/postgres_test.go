package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/exposure-cli/internal/model"
)

func TestPostgres_CreateRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "exposed_geo", "running", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	st := NewPostgresWithPool(mock)
	run, err := st.CreateRun(context.Background(), model.RunKindExposedGeo, model.RunParams{RasterPath: "pop.asc"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunKindExposedGeo, run.Kind)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_results"},
		[]string{"run_id", "hazard_label", "unit_id", "population", "no_data_only"}).
		WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"run_errors"},
		[]string{"run_id", "label", "stage", "message"}).
		WillReturnResult(1)
	mock.ExpectExec("UPDATE runs SET").
		WithArgs("partial", 2, 1, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	st := NewPostgresWithPool(mock)
	rows := []model.ExposureRow{
		{Label: "h1", Population: 10},
		{Label: "h2", UnitID: "u1", Population: 20},
	}
	errs := []model.UnitError{
		{Label: "h3", Stage: "group", Err: eris.New("overlay failure")},
	}
	err = st.CompleteRun(context.Background(), "run-1", model.RunStatusPartial, rows, errs)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun_NoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Empty result and error sets skip the COPY entirely.
	mock.ExpectExec("UPDATE runs SET").
		WithArgs("complete", 0, 0, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	st := NewPostgresWithPool(mock)
	require.NoError(t, st.CompleteRun(context.Background(), "run-1", model.RunStatusComplete, nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CompleteRun_UnknownRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE runs SET").
		WithArgs("complete", 0, 0, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	st := NewPostgresWithPool(mock)
	err = st.CompleteRun(context.Background(), "missing", model.RunStatusComplete, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgres_GetRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "kind", "status", "params", "row_count", "error_count", "created_at", "updated_at",
		}).AddRow(
			"run-1", "exposed", "complete", []byte(`{"raster_path":"pop.asc"}`), 3, 0, now, now,
		))

	st := NewPostgresWithPool(mock)
	run, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunKindExposed, run.Kind)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, "pop.asc", run.Params.RasterPath)
	assert.Equal(t, 3, run.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListResults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM run_results").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"hazard_label", "unit_id", "population", "no_data_only",
		}).
			AddRow("h1", "u1", 12.5, false).
			AddRow("h2", "", 0.0, true))

	st := NewPostgresWithPool(mock)
	rows, err := st.ListResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 12.5, rows[0].Population)
	assert.True(t, rows[1].NoDataOnly)
	assert.NoError(t, mock.ExpectationsWereMet())
}

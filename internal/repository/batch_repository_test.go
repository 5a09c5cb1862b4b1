package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
)

func newBatchRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBatchRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("INSERT INTO allocation_batches").
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.BatchRun{Label: "semester start", InvokedBy: "admin-1"}
	require.NoError(t, repo.Create(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.BatchStatusRunning, run.Status)
	assert.JSONEq(t, "[]", string(run.Errors))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryFinish(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec("UPDATE allocation_batches SET status").
		WithArgs("batch-1", models.BatchStatusCompleted, sqlmock.AnyArg(), 10, 7, 2, 1, []byte(`["req-9: resident not found"]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report := models.BatchReport{Total: 10, Allocated: 7, Waitlisted: 2, Errored: 1,
		Errors: []string{"req-9: resident not found"}}
	require.NoError(t, repo.Finish(context.Background(), "batch-1", models.BatchStatusCompleted, report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryListStaleRunning(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	cutoff := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "label", "status", "invoked_by", "started_at", "finished_at", "total", "allocated", "waitlisted", "errored", "errors"}).
		AddRow("batch-old", "", "RUNNING", "system", cutoff.Add(-2*time.Hour), nil, 0, 0, 0, 0, []byte("[]"))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND started_at < $2 ORDER BY started_at ASC")).
		WithArgs(models.BatchStatusRunning, cutoff).
		WillReturnRows(rows)

	runs, err := repo.ListStaleRunning(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "batch-old", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

func newAllocationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func allocationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "resident_id", "room_id", "allocated_at", "allocated_by", "status", "ended_at", "ended_reason"})
}

func TestAllocationRepositoryReserve(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupied = occupied + 1")).
		WithArgs("room-1", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE allocation_requests SET status").
		WithArgs("req-1", models.RequestStatusAllocated, "room-1", sqlmock.AnyArg(), "staff-1", int64(4200),
			models.RequestStatusPending, models.RequestStatusWaitlisted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO allocations").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE request_id = $1")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE residents SET current_room_id = $2 WHERE id = $1")).
		WithArgs("res-1", "room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allocation, err := repo.Reserve(context.Background(), ReserveParams{
		RequestID:        "req-1",
		ResidentID:       "res-1",
		RoomID:           "room-1",
		ExpectedOccupied: 0,
		AllocatedBy:      "staff-1",
		Score:            4200,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, allocation.ID)
	assert.Equal(t, "res-1", allocation.ResidentID)
	assert.Equal(t, "room-1", allocation.RoomID)
	assert.Equal(t, models.AllocationStatusActive, allocation.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryReserveLostCounterRace(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupied = occupied + 1")).
		WithArgs("room-1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Reserve(context.Background(), ReserveParams{
		RequestID: "req-1", ResidentID: "res-1", RoomID: "room-1", ExpectedOccupied: 1, AllocatedBy: "staff-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTxConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryReserveRequestNoLongerAllocatable(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupied = occupied + 1")).
		WithArgs("room-1", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE allocation_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Reserve(context.Background(), ReserveParams{
		RequestID: "req-cancelled", ResidentID: "res-1", RoomID: "room-1", AllocatedBy: "staff-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryEnd(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE allocations SET status").
		WithArgs("alloc-1", models.AllocationStatusEnded, sqlmock.AnyArg(), "checkout", models.AllocationStatusActive).
		WillReturnRows(allocationRows().AddRow("alloc-1", "res-1", "room-1", now, "staff-1", "ENDED", now, "checkout"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupied = occupied - 1")).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE residents SET current_room_id = NULL WHERE id = $1 AND current_room_id = $2")).
		WithArgs("res-1", "room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	allocation, err := repo.End(context.Background(), "alloc-1", models.AllocationStatusEnded, "checkout")
	require.NoError(t, err)
	assert.Equal(t, models.AllocationStatusEnded, allocation.Status)
	require.NotNil(t, allocation.EndedReason)
	assert.Equal(t, "checkout", *allocation.EndedReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryEndNotActive(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE allocations SET status").
		WillReturnRows(allocationRows())
	mock.ExpectRollback()

	_, err := repo.End(context.Background(), "alloc-ended", models.AllocationStatusEnded, "checkout")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryTransfer(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupied = occupied + 1")).
		WithArgs("room-2", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE allocations SET status").
		WithArgs("alloc-1", models.AllocationStatusTransferred, sqlmock.AnyArg(), "window seat", models.AllocationStatusActive).
		WillReturnRows(allocationRows().AddRow("alloc-1", "res-1", "room-1", now, "staff-1", "TRANSFERRED", now, "window seat"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupied = occupied - 1")).
		WithArgs("room-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO allocations").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE residents SET current_room_id = $2 WHERE id = $1")).
		WithArgs("res-1", "room-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next, err := repo.Transfer(context.Background(), TransferParams{
		AllocationID:     "alloc-1",
		TargetRoomID:     "room-2",
		ExpectedOccupied: 0,
		AllocatedBy:      "staff-1",
		Reason:           "window seat",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "alloc-1", next.ID)
	assert.Equal(t, "room-2", next.RoomID)
	assert.Equal(t, models.AllocationStatusActive, next.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryFindOccupancyDrift(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	rows := sqlmock.NewRows([]string{"room_id", "occupied", "actual"}).
		AddRow("room-1", 5, 3).
		AddRow("room-2", 0, 1)
	mock.ExpectQuery("HAVING r.occupied <> COUNT").
		WithArgs(models.AllocationStatusActive).
		WillReturnRows(rows)

	drift, err := repo.FindOccupancyDrift(context.Background())
	require.NoError(t, err)
	require.Len(t, drift, 2)
	assert.Equal(t, 3, drift[0].Actual)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryFindMultiActiveResidents(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectQuery("GROUP BY resident_id HAVING COUNT").
		WithArgs(models.AllocationStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"resident_id", "count"}).AddRow("res-9", 2))

	violations, err := repo.FindMultiActiveResidents(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "res-9", violations[0].ResidentID)
	assert.Equal(t, 2, violations[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

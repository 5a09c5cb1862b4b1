package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/repository"
)

type driftFinderStub struct {
	occupancy []repository.OccupancyDrift
	pointers  []repository.PointerDrift
	multi     []repository.MultiActive
}

func (s *driftFinderStub) FindOccupancyDrift(ctx context.Context) ([]repository.OccupancyDrift, error) {
	return s.occupancy, nil
}

func (s *driftFinderStub) FindPointerDrift(ctx context.Context) ([]repository.PointerDrift, error) {
	return s.pointers, nil
}

func (s *driftFinderStub) FindMultiActiveResidents(ctx context.Context) ([]repository.MultiActive, error) {
	return s.multi, nil
}

type occupancyWriterStub struct {
	writes map[string]int
}

func (s *occupancyWriterStub) SetOccupied(ctx context.Context, id string, occupied int) error {
	if s.writes == nil {
		s.writes = make(map[string]int)
	}
	s.writes[id] = occupied
	return nil
}

type pointerWriterStub struct {
	writes map[string]*string
}

func (s *pointerWriterStub) SetCurrentRoom(ctx context.Context, id string, roomID *string) error {
	if s.writes == nil {
		s.writes = make(map[string]*string)
	}
	s.writes[id] = roomID
	return nil
}

type staleBatchListerStub struct {
	stale []models.BatchRun
}

func (s *staleBatchListerStub) ListStaleRunning(ctx context.Context, cutoff time.Time) ([]models.BatchRun, error) {
	return s.stale, nil
}

func TestAuditRepairsOccupancyDrift(t *testing.T) {
	drift := &driftFinderStub{occupancy: []repository.OccupancyDrift{
		{RoomID: "room-1", Occupied: 5, Actual: 3},
		{RoomID: "room-2", Occupied: 0, Actual: 1},
	}}
	rooms := &occupancyWriterStub{}

	svc := NewAuditService(drift, rooms, &pointerWriterStub{}, &staleBatchListerStub{}, nil, time.Hour, nil)
	report, err := svc.Audit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"room-1": 3, "room-2": 1}, rooms.writes)
	require.Len(t, report.Repairs, 2)
	assert.Equal(t, models.RepairRoomOccupancy, report.Repairs[0].Kind)
	assert.Equal(t, "5", report.Repairs[0].Before)
	assert.Equal(t, "3", report.Repairs[0].After)
	assert.Zero(t, report.Critical)
}

func TestAuditRepairsResidentPointers(t *testing.T) {
	roomID := "room-1"
	drift := &driftFinderStub{pointers: []repository.PointerDrift{
		{ResidentID: "res-1", Current: nil, Actual: &roomID},
		{ResidentID: "res-2", Current: &roomID, Actual: nil},
	}}
	residents := &pointerWriterStub{}

	svc := NewAuditService(drift, &occupancyWriterStub{}, residents, &staleBatchListerStub{}, nil, time.Hour, nil)
	report, err := svc.Audit(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Repairs, 2)
	assert.Equal(t, &roomID, residents.writes["res-1"])
	assert.Nil(t, residents.writes["res-2"])
	assert.Equal(t, models.RepairResidentPointer, report.Repairs[0].Kind)
}

func TestAuditFlagsMultiActiveAsCritical(t *testing.T) {
	drift := &driftFinderStub{multi: []repository.MultiActive{{ResidentID: "res-1", Count: 2}}}
	rooms := &occupancyWriterStub{}
	residents := &pointerWriterStub{}

	svc := NewAuditService(drift, rooms, residents, &staleBatchListerStub{}, nil, time.Hour, nil)
	report, err := svc.Audit(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Repairs, 1)
	assert.Equal(t, models.FlagMultiActive, report.Repairs[0].Kind)
	assert.Equal(t, 1, report.Critical)
	// Flagged, never auto-resolved.
	assert.Empty(t, rooms.writes)
	assert.Empty(t, residents.writes)
}

func TestAuditFlagsStaleRunningBatches(t *testing.T) {
	stale := &staleBatchListerStub{stale: []models.BatchRun{
		{ID: "batch-1", Label: "spring", Status: models.BatchStatusRunning, StartedAt: time.Now().UTC().Add(-3 * time.Hour)},
	}}

	svc := NewAuditService(&driftFinderStub{}, &occupancyWriterStub{}, &pointerWriterStub{}, stale, nil, time.Hour, nil)
	report, err := svc.Audit(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Repairs, 1)
	assert.Equal(t, models.FlagStaleBatch, report.Repairs[0].Kind)
	assert.Equal(t, "batch-1", report.Repairs[0].EntityID)
	assert.Zero(t, report.Critical)
}

func TestAuditIdempotentOnCleanState(t *testing.T) {
	svc := NewAuditService(&driftFinderStub{}, &occupancyWriterStub{}, &pointerWriterStub{}, &staleBatchListerStub{}, nil, time.Hour, nil)

	for i := 0; i < 2; i++ {
		report, err := svc.Audit(context.Background())
		require.NoError(t, err)
		assert.Empty(t, report.Repairs)
		assert.Zero(t, report.Critical)
	}
}

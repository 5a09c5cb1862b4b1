package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/repository"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

// contendedRoomStore hands out snapshots of a shared room so concurrent
// callers race on a stale occupancy count, the same way parallel
// transactions race on a database row.
type contendedRoomStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
}

func (s *contendedRoomStore) FindByID(ctx context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *room
	return &copied, nil
}

func (s *contendedRoomStore) FindCandidates(ctx context.Context, preferredType *models.RoomType, preferredFloor *int) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Room
	for _, room := range s.rooms {
		out = append(out, *room)
	}
	return out, nil
}

// racingAllocationStore enforces the same compare-and-swap the SQL claim
// does: the reservation succeeds only when the caller's expected occupancy
// still matches and the room has capacity left.
type racingAllocationStore struct {
	rooms    *contendedRoomStore
	requests *racingRequestStore
	reserved []models.Allocation
}

func (s *racingAllocationStore) Reserve(ctx context.Context, p repository.ReserveParams) (*models.Allocation, error) {
	s.rooms.mu.Lock()
	defer s.rooms.mu.Unlock()
	room, ok := s.rooms.rooms[p.RoomID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if room.Occupied != p.ExpectedOccupied || room.Occupied >= room.Capacity {
		return nil, appErrors.ErrTxConflict
	}
	room.Occupied++
	s.requests.TransitionStatus(ctx, p.RequestID,
		[]models.RequestStatus{models.RequestStatusPending, models.RequestStatusWaitlisted},
		models.RequestStatusAllocated)
	allocation := models.Allocation{
		ID:          fmt.Sprintf("alloc-%d", len(s.reserved)+1),
		ResidentID:  p.ResidentID,
		RoomID:      p.RoomID,
		AllocatedAt: time.Now().UTC(),
		AllocatedBy: p.AllocatedBy,
		Status:      models.AllocationStatusActive,
	}
	s.reserved = append(s.reserved, allocation)
	copied := allocation
	return &copied, nil
}

func (s *racingAllocationStore) End(ctx context.Context, id string, status models.AllocationStatus, reason string) (*models.Allocation, error) {
	return nil, sql.ErrNoRows
}

func (s *racingAllocationStore) Transfer(ctx context.Context, p repository.TransferParams) (*models.Allocation, error) {
	return nil, sql.ErrNoRows
}

func (s *racingAllocationStore) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	return nil, sql.ErrNoRows
}

func (s *racingAllocationStore) FindActiveByResident(ctx context.Context, residentID string) (*models.Allocation, error) {
	return nil, sql.ErrNoRows
}

type racingRequestStore struct {
	mu       sync.Mutex
	requests map[string]*models.AllocationRequest
}

func (s *racingRequestStore) FindByID(ctx context.Context, id string) (*models.AllocationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (s *racingRequestStore) TransitionStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if req.Status == status {
			req.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *racingRequestStore) UpdateScore(ctx context.Context, id string, score int64) error {
	return nil
}

type racingWaitlistStore struct {
	mu      sync.Mutex
	entries []models.WaitlistEntry
}

func (s *racingWaitlistStore) Insert(ctx context.Context, entry *models.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = fmt.Sprintf("wl-%d", len(s.entries)+1)
	entry.Position = len(s.entries) + 1
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *racingWaitlistStore) FindByRequest(ctx context.Context, requestID string) (*models.WaitlistEntry, error) {
	return nil, sql.ErrNoRows
}

func (s *racingWaitlistStore) Compact(ctx context.Context) error {
	return nil
}

// Eight residents race for one three-bed room: exactly three reservations
// may win, the other five land on the waitlist, and the occupancy counter
// never moves past capacity.
func TestTryAllocateConcurrentRequestsRespectCapacity(t *testing.T) {
	const (
		capacity   = 3
		contenders = 8
	)

	rooms := &contendedRoomStore{rooms: map[string]*models.Room{
		"room-1": {ID: "room-1", RoomNumber: "101", Type: models.RoomTypeStandard, Capacity: capacity},
	}}
	requests := &racingRequestStore{requests: map[string]*models.AllocationRequest{}}
	allocations := &racingAllocationStore{rooms: rooms, requests: requests}
	residents := &residentReaderStub{residents: map[string]*models.Resident{}}
	waitlist := &racingWaitlistStore{}

	now := time.Now().UTC()
	for i := 1; i <= contenders; i++ {
		reqID := fmt.Sprintf("req-%d", i)
		resID := fmt.Sprintf("res-%d", i)
		requests.requests[reqID] = &models.AllocationRequest{
			ID:          reqID,
			ResidentID:  resID,
			RequestedAt: now,
			Status:      models.RequestStatusPending,
		}
		residents.residents[resID] = &models.Resident{
			ID: resID, Role: models.RoleResident, JoinedAt: now, Active: true,
		}
	}

	// A generous retry budget: losing the counter race is expected here
	// and must resolve by re-reading, not by giving up.
	svc := NewAllocationService(allocations, rooms, requests, residents, waitlist,
		NewRanker(RankConfig{}), nil, contenders, nil)

	var wg sync.WaitGroup
	outcomes := make([]*AllocationOutcome, contenders)
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			outcomes[n], errs[n] = svc.TryAllocate(context.Background(),
				fmt.Sprintf("req-%d", n+1), TryAllocateOptions{})
		}(i)
	}
	wg.Wait()

	var allocated, waitlisted int
	for i := 0; i < contenders; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, outcomes[i])
		switch {
		case outcomes[i].Allocation != nil:
			assert.Nil(t, outcomes[i].WaitlistEntry)
			assert.Equal(t, "room-1", outcomes[i].Allocation.RoomID)
			allocated++
		case outcomes[i].WaitlistEntry != nil:
			waitlisted++
		default:
			t.Fatalf("outcome %d has neither allocation nor waitlist entry", i)
		}
	}

	assert.Equal(t, capacity, allocated)
	assert.Equal(t, contenders-capacity, waitlisted)
	assert.Len(t, allocations.reserved, capacity)
	assert.Len(t, waitlist.entries, contenders-capacity)

	room, err := rooms.FindByID(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, capacity, room.Occupied)

	var allocatedReqs, waitlistedReqs int
	for _, req := range requests.requests {
		switch req.Status {
		case models.RequestStatusAllocated:
			allocatedReqs++
		case models.RequestStatusWaitlisted:
			waitlistedReqs++
		default:
			t.Fatalf("request %s left in status %s", req.ID, req.Status)
		}
	}
	assert.Equal(t, capacity, allocatedReqs)
	assert.Equal(t, contenders-capacity, waitlistedReqs)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/repository"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

type allocationRepository interface {
	Reserve(ctx context.Context, p repository.ReserveParams) (*models.Allocation, error)
	End(ctx context.Context, id string, status models.AllocationStatus, reason string) (*models.Allocation, error)
	Transfer(ctx context.Context, p repository.TransferParams) (*models.Allocation, error)
	FindByID(ctx context.Context, id string) (*models.Allocation, error)
	FindActiveByResident(ctx context.Context, residentID string) (*models.Allocation, error)
}

type candidateFinder interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindCandidates(ctx context.Context, preferredType *models.RoomType, preferredFloor *int) ([]models.Room, error)
}

type requestReader interface {
	FindByID(ctx context.Context, id string) (*models.AllocationRequest, error)
	TransitionStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus) (bool, error)
	UpdateScore(ctx context.Context, id string, score int64) error
}

type residentReader interface {
	FindByID(ctx context.Context, id string) (*models.Resident, error)
}

type waitlistStore interface {
	Insert(ctx context.Context, entry *models.WaitlistEntry) error
	FindByRequest(ctx context.Context, requestID string) (*models.WaitlistEntry, error)
	Compact(ctx context.Context) error
}

// reprocessTrigger lets the engine kick waitlist reprocessing after a
// vacancy without a service cycle; the wiring enqueues a background job.
type reprocessTrigger interface {
	TriggerReprocess(roomType models.RoomType, floor int)
}

type allocationMetrics interface {
	ObserveAllocation(outcome string)
	ObserveReservationRetry()
}

// TryAllocateOptions tune a single allocation attempt.
type TryAllocateOptions struct {
	// ActorID is recorded as allocated_by; empty means "system".
	ActorID string
	// TargetRoomID pins the attempt to one room (manual staff approval).
	TargetRoomID string
}

// AllocationOutcome is the result of a TryAllocate call: exactly one of
// the two fields is set.
type AllocationOutcome struct {
	Allocation    *models.Allocation    `json:"allocation,omitempty"`
	WaitlistEntry *models.WaitlistEntry `json:"waitlist_entry,omitempty"`
}

// AllocationService is the transactional core: it turns requests into
// allocations without ever pushing a room past capacity, and releases
// capacity back when residents leave.
type AllocationService struct {
	allocations allocationRepository
	rooms       candidateFinder
	requests    requestReader
	residents   residentReader
	waitlist    waitlistStore
	ranker      *Ranker
	reprocess   reprocessTrigger
	metrics     allocationMetrics
	maxRetries  int
	logger      *zap.Logger
}

// NewAllocationService constructs AllocationService.
func NewAllocationService(
	allocations allocationRepository,
	rooms candidateFinder,
	requests requestReader,
	residents residentReader,
	waitlist waitlistStore,
	ranker *Ranker,
	metrics allocationMetrics,
	maxRetries int,
	logger *zap.Logger,
) *AllocationService {
	if maxRetries <= 0 {
		maxRetries = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		allocations: allocations,
		rooms:       rooms,
		requests:    requests,
		residents:   residents,
		waitlist:    waitlist,
		ranker:      ranker,
		metrics:     metrics,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

// SetReprocessTrigger wires the waitlist kick. Separate from the
// constructor because the trigger is built after the engine during
// startup wiring.
func (s *AllocationService) SetReprocessTrigger(t reprocessTrigger) {
	s.reprocess = t
}

// TryAllocate attempts to place the request into a room with free
// capacity. Capacity exhaustion is not an error: the request lands on the
// waitlist and the caller gets the entry back. The reservation itself is
// a bounded optimistic-concurrency loop; no two concurrent calls can push
// a room past capacity.
func (s *AllocationService) TryAllocate(ctx context.Context, requestID string, opts TryAllocateOptions) (*AllocationOutcome, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if req.Status != models.RequestStatusPending && req.Status != models.RequestStatusWaitlisted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request not in an allocatable state")
	}

	resident, err := s.residents.FindByID(ctx, req.ResidentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident")
	}
	if _, err := s.allocations.FindActiveByResident(ctx, req.ResidentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "resident already has an active allocation")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active allocation")
	}

	score := s.ranker.Score(*req, *resident, time.Now().UTC())
	actor := opts.ActorID
	if actor == "" {
		actor = models.AllocatedBySystem
	}

	allocation, err := s.reserve(ctx, req, score, actor, opts.TargetRoomID)
	if err == nil {
		if s.metrics != nil {
			s.metrics.ObserveAllocation("allocated")
		}
		s.logger.Info("request allocated",
			zap.String("request_id", req.ID),
			zap.String("room_id", allocation.RoomID),
			zap.String("resident_id", req.ResidentID))
		return &AllocationOutcome{Allocation: allocation}, nil
	}
	if !errors.Is(err, appErrors.ErrCapacityUnavailable) {
		if s.metrics != nil {
			s.metrics.ObserveAllocation("error")
		}
		return nil, err
	}

	entry, err := s.pushToWaitlist(ctx, req, score)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveAllocation("error")
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveAllocation("waitlisted")
	}
	return &AllocationOutcome{WaitlistEntry: entry}, nil
}

// reserve walks the candidate sequence attempting the atomic claim. It
// returns ErrCapacityUnavailable when every candidate is full, and an
// internal error when the retry budget is exhausted by genuine write
// contention rather than missing capacity.
func (s *AllocationService) reserve(ctx context.Context, req *models.AllocationRequest, score int64, actor, targetRoomID string) (*models.Allocation, error) {
	candidates, err := s.candidates(ctx, req, targetRoomID)
	if err != nil {
		return nil, err
	}

	retries := 0
	for _, room := range candidates {
		current := room
		for current.Occupied < current.Capacity {
			allocation, err := s.allocations.Reserve(ctx, repository.ReserveParams{
				RequestID:        req.ID,
				ResidentID:       req.ResidentID,
				RoomID:           current.ID,
				ExpectedOccupied: current.Occupied,
				AllocatedBy:      actor,
				Score:            score,
			})
			if err == nil {
				return allocation, nil
			}
			if !errors.Is(err, appErrors.ErrTxConflict) {
				return nil, err
			}

			// Lost the occupancy race; re-read and try again while the
			// room still has capacity and the budget allows.
			if s.metrics != nil {
				s.metrics.ObserveReservationRetry()
			}
			retries++
			if retries > s.maxRetries {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reservation retries exhausted")
			}
			fresh, err := s.rooms.FindByID(ctx, current.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-read room")
			}
			current = fresh
		}
	}

	return nil, appErrors.ErrCapacityUnavailable
}

func (s *AllocationService) candidates(ctx context.Context, req *models.AllocationRequest, targetRoomID string) ([]*models.Room, error) {
	if targetRoomID != "" {
		room, err := s.rooms.FindByID(ctx, targetRoomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
		if room.Maintenance {
			return nil, appErrors.Clone(appErrors.ErrValidation, "room is under maintenance")
		}
		return []*models.Room{room}, nil
	}

	rooms, err := s.rooms.FindCandidates(ctx, req.PreferredType, req.PreferredFloor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find candidate rooms")
	}
	candidates := make([]*models.Room, len(rooms))
	for i := range rooms {
		candidates[i] = &rooms[i]
	}
	return candidates, nil
}

// pushToWaitlist parks the request, preserving an existing entry when the
// request was already waiting (reprocessing is a no-op, not an error).
func (s *AllocationService) pushToWaitlist(ctx context.Context, req *models.AllocationRequest, score int64) (*models.WaitlistEntry, error) {
	if req.Status == models.RequestStatusWaitlisted {
		entry, err := s.waitlist.FindByRequest(ctx, req.ID)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist entry")
		}
		// Waitlisted request without an entry: fall through and recreate it.
	} else {
		moved, err := s.requests.TransitionStatus(ctx, req.ID,
			[]models.RequestStatus{models.RequestStatusPending}, models.RequestStatusWaitlisted)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to waitlist request")
		}
		if !moved {
			return nil, appErrors.Clone(appErrors.ErrValidation, "request not in an allocatable state")
		}
	}

	if err := s.requests.UpdateScore(ctx, req.ID, score); err != nil {
		s.logger.Warn("failed to store request score", zap.Error(err))
	}

	entry := &models.WaitlistEntry{
		RequestID:  req.ID,
		ResidentID: req.ResidentID,
		Score:      score,
		ExpiresAt:  req.ExpiresAt,
	}
	if err := s.waitlist.Insert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert waitlist entry")
	}
	if err := s.waitlist.Compact(ctx); err != nil {
		s.logger.Warn("failed to compact waitlist", zap.Error(err))
	}
	s.logger.Info("request waitlisted", zap.String("request_id", req.ID), zap.Int64("score", score))
	return entry, nil
}

// Deallocate ends an active allocation, frees the slot and kicks waitlist
// reprocessing for the vacated room's bucket.
func (s *AllocationService) Deallocate(ctx context.Context, allocationID, reason string) (*models.Allocation, error) {
	if _, err := s.allocations.FindByID(ctx, allocationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}

	allocation, err := s.allocations.End(ctx, allocationID, models.AllocationStatusEnded, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("allocation ended",
		zap.String("allocation_id", allocation.ID),
		zap.String("room_id", allocation.RoomID),
		zap.String("reason", reason))
	s.kickReprocess(ctx, allocation.RoomID)
	return allocation, nil
}

// Transfer moves a resident to a specific target room atomically, with
// the same bounded retry loop the reservation path uses.
func (s *AllocationService) Transfer(ctx context.Context, allocationID, targetRoomID, actorID string) (*models.Allocation, error) {
	old, err := s.allocations.FindByID(ctx, allocationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if old.RoomID == targetRoomID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "already allocated to target room")
	}
	if actorID == "" {
		actorID = models.AllocatedBySystem
	}

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		room, err := s.rooms.FindByID(ctx, targetRoomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "target room not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target room")
		}
		if room.Maintenance {
			return nil, appErrors.Clone(appErrors.ErrValidation, "target room is under maintenance")
		}
		if room.Occupied >= room.Capacity {
			return nil, appErrors.Clone(appErrors.ErrConflict, "target room is full")
		}

		next, err := s.allocations.Transfer(ctx, repository.TransferParams{
			AllocationID:     allocationID,
			TargetRoomID:     targetRoomID,
			ExpectedOccupied: room.Occupied,
			AllocatedBy:      actorID,
			Reason:           "transferred to " + targetRoomID,
		})
		if err == nil {
			s.kickReprocess(ctx, old.RoomID)
			return next, nil
		}
		if !errors.Is(err, appErrors.ErrTxConflict) {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.ObserveReservationRetry()
		}
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "transfer retries exhausted")
}

// GetActiveForResident returns the resident's current active allocation.
func (s *AllocationService) GetActiveForResident(ctx context.Context, residentID string) (*models.Allocation, error) {
	allocation, err := s.allocations.FindActiveByResident(ctx, residentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident has no active allocation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	return allocation, nil
}

// Get returns an allocation by ID.
func (s *AllocationService) Get(ctx context.Context, id string) (*models.Allocation, error) {
	allocation, err := s.allocations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	return allocation, nil
}

func (s *AllocationService) kickReprocess(ctx context.Context, vacatedRoomID string) {
	if s.reprocess == nil {
		return
	}
	room, err := s.rooms.FindByID(ctx, vacatedRoomID)
	if err != nil {
		s.logger.Warn("failed to load vacated room for reprocess hint", zap.Error(err))
		return
	}
	s.reprocess.TriggerReprocess(room.Type, room.Floor)
}

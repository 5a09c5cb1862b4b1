package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

type requestRepository interface {
	Create(ctx context.Context, req *models.AllocationRequest) error
	FindByID(ctx context.Context, id string) (*models.AllocationRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.AllocationRequest, int, error)
	HasNonTerminal(ctx context.Context, residentID string) (bool, error)
	TransitionStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
}

type activeAllocationChecker interface {
	FindActiveByResident(ctx context.Context, residentID string) (*models.Allocation, error)
}

type waitlistRemover interface {
	DeleteByRequest(ctx context.Context, requestID string) (bool, error)
	Compact(ctx context.Context) error
}

// SubmitRequest describes a resident's room ask.
type SubmitRequest struct {
	ResidentID          string           `json:"-" validate:"required"`
	PreferredType       *models.RoomType `json:"preferred_type"`
	PreferredFloor      *int             `json:"preferred_floor"`
	SpecialRequirements string           `json:"special_requirements" validate:"max=2000"`
	ExpiresAt           *time.Time       `json:"expires_at"`
}

// SubmitOutcome pairs the created request with the result of the
// immediate allocation attempt: a free matching room is claimed right
// away, otherwise the request lands on the waitlist.
type SubmitOutcome struct {
	Request       *models.AllocationRequest `json:"request"`
	Allocation    *models.Allocation        `json:"allocation,omitempty"`
	WaitlistEntry *models.WaitlistEntry     `json:"waitlist_entry,omitempty"`
}

// RequestService owns the allocation request queue.
type RequestService struct {
	repo        requestRepository
	allocations activeAllocationChecker
	residents   residentReader
	waitlist    waitlistRemover
	allocator   requestAllocator
	requestTTL  time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRequestService constructs RequestService.
func NewRequestService(
	repo requestRepository,
	allocations activeAllocationChecker,
	residents residentReader,
	waitlist waitlistRemover,
	allocator requestAllocator,
	requestTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		repo:        repo,
		allocations: allocations,
		residents:   residents,
		waitlist:    waitlist,
		allocator:   allocator,
		requestTTL:  requestTTL,
		validator:   validate,
		logger:      logger,
	}
}

// Submit creates a new request and immediately attempts to place it: the
// first matching room with free capacity is claimed on the spot, and a
// full house parks the request on the waitlist. A resident may hold at
// most one non-terminal request and no active allocation.
func (s *RequestService) Submit(ctx context.Context, req SubmitRequest) (*SubmitOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if req.PreferredType != nil && !models.ValidRoomType(*req.PreferredType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown room type")
	}

	resident, err := s.residents.FindByID(ctx, req.ResidentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident")
	}
	if !resident.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resident is inactive")
	}

	exists, err := s.repo.HasNonTerminal(ctx, req.ResidentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open requests")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "resident already has an open request")
	}
	if _, err := s.allocations.FindActiveByResident(ctx, req.ResidentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "resident already has an active allocation")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active allocation")
	}

	now := time.Now().UTC()
	expiresAt := req.ExpiresAt
	if expiresAt == nil && s.requestTTL > 0 {
		deadline := now.Add(s.requestTTL)
		expiresAt = &deadline
	}

	request := &models.AllocationRequest{
		ResidentID:          req.ResidentID,
		RequestedAt:         now,
		PreferredType:       req.PreferredType,
		PreferredFloor:      req.PreferredFloor,
		SpecialRequirements: req.SpecialRequirements,
		Status:              models.RequestStatusPending,
		ExpiresAt:           expiresAt,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	s.logger.Info("request submitted", zap.String("request_id", request.ID), zap.String("resident_id", req.ResidentID))

	result := &SubmitOutcome{Request: request}
	outcome, err := s.allocator.TryAllocate(ctx, request.ID, TryAllocateOptions{})
	if err != nil {
		// The submission itself succeeded; the request stays pending for
		// the next sweep or batch run.
		s.logger.Warn("immediate allocation attempt failed",
			zap.String("request_id", request.ID), zap.Error(err))
		return result, nil
	}
	switch {
	case outcome.Allocation != nil:
		request.Status = models.RequestStatusAllocated
		request.AllocatedRoomID = &outcome.Allocation.RoomID
		result.Allocation = outcome.Allocation
	case outcome.WaitlistEntry != nil:
		request.Status = models.RequestStatusWaitlisted
		result.WaitlistEntry = outcome.WaitlistEntry
	}
	return result, nil
}

// Get returns a request by ID.
func (s *RequestService) Get(ctx context.Context, id string) (*models.AllocationRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// List returns requests with pagination metadata.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.AllocationRequest, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return requests, pagination, nil
}

// Cancel withdraws a request. Residents may only cancel their own; the
// transition is a compare-and-swap so a cancel racing an in-flight
// allocation loses cleanly instead of corrupting state.
func (s *RequestService) Cancel(ctx context.Context, id, actorID string, actorRole models.UserRole) (*models.AllocationRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if actorRole == models.RoleResident && request.ResidentID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot cancel another resident's request")
	}

	moved, err := s.repo.TransitionStatus(ctx, id,
		[]models.RequestStatus{models.RequestStatusPending, models.RequestStatusWaitlisted},
		models.RequestStatusCancelled)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel request")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request is not cancellable")
	}

	removed, err := s.waitlist.DeleteByRequest(ctx, id)
	if err != nil {
		s.logger.Warn("failed to remove waitlist entry on cancel", zap.Error(err))
	} else if removed {
		if err := s.waitlist.Compact(ctx); err != nil {
			s.logger.Warn("failed to compact waitlist on cancel", zap.Error(err))
		}
	}

	request.Status = models.RequestStatusCancelled
	s.logger.Info("request cancelled", zap.String("request_id", id), zap.String("actor_id", actorID))
	return request, nil
}

// ExpireSweep transitions overdue requests to EXPIRED and cleans up their
// waitlist entries. Safe to run on a timer; a sweep with nothing due is a
// no-op.
func (s *RequestService) ExpireSweep(ctx context.Context) (int, error) {
	ids, err := s.repo.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire requests")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.waitlist.Compact(ctx); err != nil {
		s.logger.Warn("failed to compact waitlist after expiry", zap.Error(err))
	}
	s.logger.Info("requests expired", zap.Int("count", len(ids)))
	return len(ids), nil
}

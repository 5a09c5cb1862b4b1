package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

type roomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByNumber(ctx context.Context, number string) (*models.Room, error)
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) (bool, error)
	FindCandidates(ctx context.Context, preferredType *models.RoomType, preferredFloor *int) ([]models.Room, error)
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const roomsCachePrefix = "rooms:list:"

// CreateRoomRequest describes room creation payload.
type CreateRoomRequest struct {
	RoomNumber string          `json:"room_number" validate:"required"`
	Floor      int             `json:"floor" validate:"gte=0"`
	Type       models.RoomType `json:"type" validate:"required"`
	Capacity   int             `json:"capacity" validate:"required,gte=1"`
	Price      float64         `json:"price" validate:"gte=0"`
	Amenities  []string        `json:"amenities"`
}

// RoomService owns the room catalog.
type RoomService struct {
	repo      roomRepository
	cache     viewCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs RoomService.
func NewRoomService(repo roomRepository, cache viewCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create registers a new room.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.RoomView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if !models.ValidRoomType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown room type")
	}
	if _, err := s.repo.FindByNumber(ctx, req.RoomNumber); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room number already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room number")
	}

	room := &models.Room{
		RoomNumber: req.RoomNumber,
		Floor:      req.Floor,
		Type:       req.Type,
		Capacity:   req.Capacity,
		Price:      req.Price,
		Amenities:  req.Amenities,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	view := models.NewRoomView(*room)
	return &view, nil
}

// Get returns a room with its derived status.
func (s *RoomService) Get(ctx context.Context, id string) (*models.RoomView, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	view := models.NewRoomView(*room)
	return &view, nil
}

// List returns rooms with computed availability, served from cache when
// the exact filter was listed recently.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.RoomView, *models.Pagination, error) {
	type cached struct {
		Views      []models.RoomView  `json:"views"`
		Pagination *models.Pagination `json:"pagination"`
	}
	key := roomsCachePrefix + cacheKeyForRoomFilter(filter)
	if s.cache != nil {
		var hit cached
		if err := s.cache.Get(ctx, key, &hit); err == nil {
			return hit.Views, hit.Pagination, nil
		}
	}

	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	views := make([]models.RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, models.NewRoomView(room))
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

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cached{Views: views, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache room list", zap.Error(err))
		}
	}
	return views, pagination, nil
}

// Update applies a staff patch. Capacity may never drop below the current
// occupancy; occupancy itself is not patchable here at all.
func (s *RoomService) Update(ctx context.Context, id string, patch models.RoomPatch) (*models.RoomView, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	if patch.Capacity != nil {
		if *patch.Capacity < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity must be at least 1")
		}
		if *patch.Capacity < room.Occupied {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity cannot drop below current occupancy")
		}
		room.Capacity = *patch.Capacity
	}
	if patch.Type != nil {
		if !models.ValidRoomType(*patch.Type) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown room type")
		}
		room.Type = *patch.Type
	}
	if patch.Floor != nil {
		room.Floor = *patch.Floor
	}
	if patch.Maintenance != nil {
		room.Maintenance = *patch.Maintenance
	}
	if patch.Price != nil {
		room.Price = *patch.Price
	}
	if patch.Amenities != nil {
		room.Amenities = patch.Amenities
	}

	if err := s.repo.Update(ctx, room); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	s.invalidate(ctx)

	view := models.NewRoomView(*room)
	return &view, nil
}

// Delete removes an empty room. Rooms with residents are never
// hard-deleted.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.Occupied > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "room still has residents")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	if !deleted {
		// The guard in the statement lost a race with a concurrent allocation.
		return appErrors.Clone(appErrors.ErrConflict, "room still has residents")
	}
	s.invalidate(ctx)
	return nil
}

func (s *RoomService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, roomsCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate room cache", zap.Error(err))
	}
}

func cacheKeyForRoomFilter(filter models.RoomFilter) string {
	key := ""
	if filter.Type != nil {
		key += "t=" + string(*filter.Type) + ";"
	}
	if filter.Floor != nil {
		key += "f=" + strconv.Itoa(*filter.Floor) + ";"
	}
	if filter.Status != nil {
		key += "s=" + string(*filter.Status) + ";"
	}
	if filter.Maintenance != nil {
		if *filter.Maintenance {
			key += "m=1;"
		} else {
			key += "m=0;"
		}
	}
	key += "p=" + strconv.Itoa(filter.Page) + ";n=" + strconv.Itoa(filter.PageSize)
	return key
}

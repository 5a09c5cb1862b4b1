package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/middleware"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/repository"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/service"
)

func TestAllocationRoutesIntegration(t *testing.T) {
	router := buildAllocationRouter()

	t.Run("create room unauthorized", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"room_number":"101","type":"STANDARD","capacity":2}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("create room forbidden for residents", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"room_number":"101","type":"STANDARD","capacity":2}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleResident))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("create room success", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/rooms", bytes.NewBufferString(`{"room_number":"101","type":"STANDARD","capacity":2}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStaff))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"101"`)
	})

	t.Run("allocate success", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/allocations", bytes.NewBufferString(`{"request_id":"req-open"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStaff))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"allocation"`)
	})

	t.Run("allocate parks on waitlist when room is full", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/allocations", bytes.NewBufferString(`{"request_id":"req-open","room_id":"room-full"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStaff))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusAccepted, resp.Code)
		require.Contains(t, resp.Body.String(), `"waitlist_entry"`)
	})

	t.Run("resident views own allocation", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/residents/res-self/allocation", nil)
		req.Header.Set("X-Test-Role", string(models.RoleResident))
		req.Header.Set("X-Test-User", "res-self")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"room-1"`)
	})

	t.Run("resident cannot view another allocation", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/residents/res-self/allocation", nil)
		req.Header.Set("X-Test-Role", string(models.RoleResident))
		req.Header.Set("X-Test-User", "res-other")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func buildAllocationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			userID := c.GetHeader("X-Test-User")
			if userID == "" {
				userID = "test-user"
			}
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: userID,
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	rooms := &roomRepoIntegrationStub{rooms: map[string]*models.Room{
		"room-free": {ID: "room-free", RoomNumber: "201", Type: models.RoomTypeStandard, Capacity: 2, Occupied: 0},
		"room-full": {ID: "room-full", RoomNumber: "202", Type: models.RoomTypeStandard, Capacity: 2, Occupied: 2},
	}}
	roomService := service.NewRoomService(rooms, nil, 0, nil, nil)
	allocationService := service.NewAllocationService(
		&allocationRepoIntegrationStub{active: map[string]*models.Allocation{
			"res-self": {ID: "alloc-1", ResidentID: "res-self", RoomID: "room-1", Status: models.AllocationStatusActive},
		}},
		rooms,
		&requestReaderIntegrationStub{requests: map[string]*models.AllocationRequest{
			"req-open": {ID: "req-open", ResidentID: "res-1", Status: models.RequestStatusPending},
		}},
		&residentReaderIntegrationStub{residents: map[string]*models.Resident{
			"res-1": {ID: "res-1", FullName: "Asha Rao", Role: models.RoleResident, Active: true},
		}},
		&waitlistStoreIntegrationStub{},
		service.NewRanker(service.RankConfig{}),
		nil, 0, nil,
	)

	roomHandler := NewRoomHandler(roomService)
	allocationHandler := NewAllocationHandler(allocationService)

	router.POST("/rooms", internalmiddleware.RBAC("ADMIN", "STAFF"), roomHandler.Create)
	router.POST("/allocations", internalmiddleware.RBAC("ADMIN", "STAFF"), allocationHandler.Allocate)
	router.GET("/residents/:id/allocation", internalmiddleware.RBAC("ADMIN", "STAFF", "SELF"), allocationHandler.ActiveForResident)

	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type roomRepoIntegrationStub struct {
	rooms map[string]*models.Room
}

func (s *roomRepoIntegrationStub) Create(_ context.Context, room *models.Room) error {
	room.ID = uuid.NewString()
	s.rooms[room.ID] = room
	return nil
}

func (s *roomRepoIntegrationStub) FindByID(_ context.Context, id string) (*models.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *room
	return &copied, nil
}

func (s *roomRepoIntegrationStub) FindByNumber(_ context.Context, number string) (*models.Room, error) {
	for _, room := range s.rooms {
		if room.RoomNumber == number {
			copied := *room
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *roomRepoIntegrationStub) List(_ context.Context, _ models.RoomFilter) ([]models.Room, int, error) {
	out := make([]models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, *room)
	}
	return out, len(out), nil
}

func (s *roomRepoIntegrationStub) Update(_ context.Context, room *models.Room) error {
	s.rooms[room.ID] = room
	return nil
}

func (s *roomRepoIntegrationStub) Delete(_ context.Context, id string) (bool, error) {
	_, ok := s.rooms[id]
	delete(s.rooms, id)
	return ok, nil
}

func (s *roomRepoIntegrationStub) FindCandidates(_ context.Context, _ *models.RoomType, _ *int) ([]models.Room, error) {
	var out []models.Room
	for _, room := range s.rooms {
		if room.Occupied < room.Capacity && !room.Maintenance {
			out = append(out, *room)
		}
	}
	return out, nil
}

type allocationRepoIntegrationStub struct {
	active map[string]*models.Allocation
}

func (s *allocationRepoIntegrationStub) Reserve(_ context.Context, p repository.ReserveParams) (*models.Allocation, error) {
	return &models.Allocation{
		ID:          uuid.NewString(),
		ResidentID:  p.ResidentID,
		RoomID:      p.RoomID,
		AllocatedBy: p.AllocatedBy,
		Status:      models.AllocationStatusActive,
	}, nil
}

func (s *allocationRepoIntegrationStub) End(_ context.Context, id string, status models.AllocationStatus, reason string) (*models.Allocation, error) {
	return &models.Allocation{ID: id, Status: status, EndedReason: &reason}, nil
}

func (s *allocationRepoIntegrationStub) Transfer(_ context.Context, p repository.TransferParams) (*models.Allocation, error) {
	return &models.Allocation{ID: uuid.NewString(), RoomID: p.TargetRoomID, Status: models.AllocationStatusActive}, nil
}

func (s *allocationRepoIntegrationStub) FindByID(_ context.Context, id string) (*models.Allocation, error) {
	for _, allocation := range s.active {
		if allocation.ID == id {
			return allocation, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *allocationRepoIntegrationStub) FindActiveByResident(_ context.Context, residentID string) (*models.Allocation, error) {
	allocation, ok := s.active[residentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return allocation, nil
}

type requestReaderIntegrationStub struct {
	requests map[string]*models.AllocationRequest
}

func (s *requestReaderIntegrationStub) FindByID(_ context.Context, id string) (*models.AllocationRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (s *requestReaderIntegrationStub) TransitionStatus(_ context.Context, id string, _ []models.RequestStatus, to models.RequestStatus) (bool, error) {
	req, ok := s.requests[id]
	if !ok {
		return false, nil
	}
	req.Status = to
	return true, nil
}

func (s *requestReaderIntegrationStub) UpdateScore(_ context.Context, _ string, _ int64) error {
	return nil
}

type residentReaderIntegrationStub struct {
	residents map[string]*models.Resident
}

func (s *residentReaderIntegrationStub) FindByID(_ context.Context, id string) (*models.Resident, error) {
	resident, ok := s.residents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return resident, nil
}

type waitlistStoreIntegrationStub struct {
	entries []*models.WaitlistEntry
}

func (s *waitlistStoreIntegrationStub) Insert(_ context.Context, entry *models.WaitlistEntry) error {
	entry.ID = uuid.NewString()
	entry.Position = len(s.entries) + 1
	s.entries = append(s.entries, entry)
	return nil
}

func (s *waitlistStoreIntegrationStub) FindByRequest(_ context.Context, requestID string) (*models.WaitlistEntry, error) {
	for _, entry := range s.entries {
		if entry.RequestID == requestID {
			return entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *waitlistStoreIntegrationStub) Compact(_ context.Context) error {
	return nil
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/service"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/response"
)

// AllocationHandler exposes the allocation engine endpoints.
type AllocationHandler struct {
	service *service.AllocationService
}

// NewAllocationHandler constructs an allocation handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

type allocateRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	RoomID    string `json:"room_id"`
}

type deallocateRequest struct {
	Reason string `json:"reason"`
}

type transferRequest struct {
	RoomID string `json:"room_id" binding:"required"`
}

// Allocate godoc
// @Summary Attempt allocation for a request
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body allocateRequest true "Allocation payload"
// @Success 200 {object} response.Envelope
// @Router /allocations [post]
func (h *AllocationHandler) Allocate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	outcome, err := h.service.TryAllocate(c.Request.Context(), req.RequestID, service.TryAllocateOptions{
		ActorID:      claims.UserID,
		TargetRoomID: req.RoomID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if outcome.WaitlistEntry != nil {
		// No capacity; the request was parked on the waitlist instead.
		status = http.StatusAccepted
	}
	response.JSON(c, status, outcome, nil)
}

// Get godoc
// @Summary Get allocation detail
// @Tags Allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id} [get]
func (h *AllocationHandler) Get(c *gin.Context) {
	allocation, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// Deallocate godoc
// @Summary End an active allocation
// @Tags Allocations
// @Accept json
// @Produce json
// @Param id path string true "Allocation ID"
// @Param payload body deallocateRequest false "Deallocation payload"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id}/deallocate [post]
func (h *AllocationHandler) Deallocate(c *gin.Context) {
	var req deallocateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	allocation, err := h.service.Deallocate(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// Transfer godoc
// @Summary Move a resident to another room
// @Tags Allocations
// @Accept json
// @Produce json
// @Param id path string true "Allocation ID"
// @Param payload body transferRequest true "Transfer payload"
// @Success 200 {object} response.Envelope
// @Router /allocations/{id}/transfer [post]
func (h *AllocationHandler) Transfer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	allocation, err := h.service.Transfer(c.Request.Context(), c.Param("id"), req.RoomID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// ActiveForResident godoc
// @Summary Get a resident's active allocation
// @Tags Allocations
// @Produce json
// @Param id path string true "Resident ID"
// @Success 200 {object} response.Envelope
// @Router /residents/{id}/allocation [get]
func (h *AllocationHandler) ActiveForResident(c *gin.Context) {
	allocation, err := h.service.GetActiveForResident(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

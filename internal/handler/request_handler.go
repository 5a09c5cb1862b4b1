package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/service"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/response"
)

// RequestHandler exposes the allocation request queue endpoints.
type RequestHandler struct {
	service *service.RequestService
}

// NewRequestHandler constructs a request handler.
func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// Submit godoc
// @Summary Submit an allocation request
// @Description Creates the request and immediately attempts allocation; a full house answers 202 with the waitlist entry.
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.SubmitRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	// Residents always file for themselves; staff may file on behalf of
	// a resident via the resident_id query parameter.
	req.ResidentID = claims.UserID
	if onBehalf := c.Query("resident_id"); onBehalf != "" && claims.Role != models.RoleResident {
		req.ResidentID = onBehalf
	}

	outcome, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if outcome.WaitlistEntry != nil {
		// No capacity right now; waiting is a normal outcome, not an error.
		status = http.StatusAccepted
	}
	response.JSON(c, status, outcome, nil)
}

// List godoc
// @Summary List allocation requests
// @Tags Requests
// @Produce json
// @Param resident_id query string false "Filter by resident"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.RequestFilter
	filter.ResidentID = c.Query("resident_id")
	if claims.Role == models.RoleResident {
		filter.ResidentID = claims.UserID
	}
	if raw := c.Query("status"); raw != "" {
		filter.Status = models.RequestStatus(raw)
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get request detail
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role == models.RoleResident && request.ResidentID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Cancel godoc
// @Summary Cancel a pending or waitlisted request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

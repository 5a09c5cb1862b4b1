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

// WaitlistHandler exposes the waitlist view and manual reprocessing.
type WaitlistHandler struct {
	service *service.WaitlistService
}

// NewWaitlistHandler constructs a waitlist handler.
func NewWaitlistHandler(svc *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{service: svc}
}

// View godoc
// @Summary View the ordered waitlist
// @Tags Waitlist
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /waitlist [get]
func (h *WaitlistHandler) View(c *gin.Context) {
	entries, err := h.service.View(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Reprocess godoc
// @Summary Reprocess the waitlist against current vacancies
// @Tags Waitlist
// @Produce json
// @Param type query string false "Restrict to room type"
// @Param floor query int false "Restrict to floor"
// @Success 200 {object} response.Envelope
// @Router /waitlist/reprocess [post]
func (h *WaitlistHandler) Reprocess(c *gin.Context) {
	var roomType *models.RoomType
	if raw := c.Query("type"); raw != "" {
		candidate := models.RoomType(raw)
		if !models.ValidRoomType(candidate) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown room type"))
			return
		}
		roomType = &candidate
	}
	var floor *int
	if raw := c.Query("floor"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "floor must be an integer"))
			return
		}
		floor = &parsed
	}

	promoted, err := h.service.Reprocess(c.Request.Context(), roomType, floor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"promoted": promoted}, nil)
}

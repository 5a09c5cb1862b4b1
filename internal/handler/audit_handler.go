package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/service"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/response"
)

// AuditHandler exposes the consistency audit trigger.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// Run godoc
// @Summary Run a consistency audit pass
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /audit [post]
func (h *AuditHandler) Run(c *gin.Context) {
	report, err := h.service.Audit(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

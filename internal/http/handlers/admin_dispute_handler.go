package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-backend/internal/dto"
	"github.com/ignatzorin/freelance-backend/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-backend/internal/service"
)

// AdminDisputeHandler — резолюция споров администратором платформы.
// Маршруты защищены AdminKeyMiddleware.
type AdminDisputeHandler struct {
	svc *service.AdminDisputeService
}

func NewAdminDisputeHandler(s *service.AdminDisputeService) *AdminDisputeHandler {
	return &AdminDisputeHandler{svc: s}
}

// BeginReview POST /admin/disputes/:disputeId/review
func (h *AdminDisputeHandler) BeginReview(c *gin.Context) {
	dispute, err := h.svc.BeginReview(c.Request.Context(), c.Param("disputeId"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dispute)
}

// Resolve POST /admin/disputes/:disputeId/resolve
func (h *AdminDisputeHandler) Resolve(c *gin.Context) {
	var req dto.ResolveDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.svc.SplitFunds(c.Request.Context(), c.Param("disputeId"),
		req.ClientPercentage, req.FreelancerPercentage)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dispute)
}

// ReleaseHourly POST /admin/disputes/:disputeId/release-hourly
func (h *AdminDisputeHandler) ReleaseHourly(c *gin.Context) {
	dispute, err := h.svc.ReleaseHoldHourly(c.Request.Context(), c.Param("disputeId"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dispute)
}

// Reject POST /admin/disputes/:disputeId/reject
func (h *AdminDisputeHandler) Reject(c *gin.Context) {
	dispute, err := h.svc.Reject(c.Request.Context(), c.Param("disputeId"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondJSON(c, http.StatusOK, dispute)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-backend/internal/dto"
	"github.com/ignatzorin/freelance-backend/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/service"
)

type DisputeHandler struct {
	svc *service.DisputeService
}

func NewDisputeHandler(s *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{svc: s}
}

// Create POST /contracts/:contractId/disputes
func (h *DisputeHandler) Create(c *gin.Context) {
	userID, role, contractID, ok := h.requesterAndContract(c)
	if !ok {
		return
	}

	var req dto.CreateDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var scope *models.DisputeScope
	if req.Scope != nil {
		scopeID, err := common.ParseOptionalUUID(req.ScopeID)
		if err != nil {
			common.RespondBadRequest(c, "неверный scope_id")
			return
		}
		scope = &models.DisputeScope{Kind: *req.Scope, ID: scopeID}
	}

	dispute, err := h.svc.Create(c.Request.Context(), userID, role, service.CreateDisputeInput{
		ContractID:  contractID,
		Scope:       scope,
		ReasonCode:  req.ReasonCode,
		Description: req.Description,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dispute)
}

// Get GET /disputes/:disputeId
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	dispute, err := h.svc.Get(c.Request.Context(), userID, c.Param("disputeId"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dispute)
}

// List GET /contracts/:contractId/disputes
func (h *DisputeHandler) List(c *gin.Context) {
	userID, role, contractID, ok := h.requesterAndContract(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.svc.ListByContract(c.Request.Context(), userID, contractID, role, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.ListResponse{
		Items:  disputes,
		Limit:  limit,
		Offset: offset,
	})
}

// ListLedger GET /contracts/:contractId/escrow
func (h *DisputeHandler) ListLedger(c *gin.Context) {
	userID, role, contractID, ok := h.requesterAndContract(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	entries, err := h.svc.ListLedger(c.Request.Context(), userID, contractID, role, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.ListResponse{
		Items:  entries,
		Limit:  limit,
		Offset: offset,
	})
}

// ListActivity GET /contracts/:contractId/activity
func (h *DisputeHandler) ListActivity(c *gin.Context) {
	userID, role, contractID, ok := h.requesterAndContract(c)
	if !ok {
		return
	}

	activity, err := h.svc.ListActivity(c.Request.Context(), userID, contractID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"items": activity})
}

// CancelWithDispute POST /contracts/:contractId/cancel-with-dispute
func (h *DisputeHandler) CancelWithDispute(c *gin.Context) {
	userID, role, contractID, ok := h.requesterAndContract(c)
	if !ok {
		return
	}

	var req dto.CancelContractRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.svc.CancelWithDispute(c.Request.Context(), userID, role, contractID, req.ReasonCode, req.Description)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dispute)
}

// RaiseForCancelled POST /contracts/:contractId/cancelled-dispute
func (h *DisputeHandler) RaiseForCancelled(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "contractId")
	if err != nil {
		common.RespondBadRequest(c, "неверный contract_id")
		return
	}

	var req dto.CancelledContractDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestoneID, err := common.ParseOptionalUUID(req.MilestoneID)
	if err != nil {
		common.RespondBadRequest(c, "неверный milestone_id")
		return
	}

	dispute, err := h.svc.RaiseForCancelledContract(c.Request.Context(), userID, contractID, milestoneID, req.Notes)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dispute)
}

// requesterAndContract достаёт userID, роль и contract_id из запроса.
func (h *DisputeHandler) requesterAndContract(c *gin.Context) (uuid.UUID, string, uuid.UUID, bool) {
	uid, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, "", uuid.Nil, false
	}

	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, "", uuid.Nil, false
	}

	contractID, err := common.ParseUUIDParam(c, "contractId")
	if err != nil {
		common.RespondBadRequest(c, "неверный contract_id")
		return uuid.Nil, "", uuid.Nil, false
	}

	return uid, role, contractID, true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-backend/internal/dto"
	"github.com/ignatzorin/freelance-backend/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-backend/internal/models"
	"github.com/ignatzorin/freelance-backend/internal/service"
)

type WorklogHandler struct {
	svc *service.WorklogService
}

func NewWorklogHandler(s *service.WorklogService) *WorklogHandler {
	return &WorklogHandler{svc: s}
}

// Submit POST /contracts/:contractId/worklogs
func (h *WorklogHandler) Submit(c *gin.Context) {
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

	var req dto.SubmitWorklogRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestoneID, err := common.ParseOptionalUUID(req.MilestoneID)
	if err != nil {
		common.RespondBadRequest(c, "неверный milestone_id")
		return
	}

	files := make([]models.WorkLogFile, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, models.WorkLogFile{FileName: f.FileName, FileURL: f.FileURL})
	}

	worklog, err := h.svc.Submit(c.Request.Context(), userID, service.SubmitWorklogInput{
		ContractID:  contractID,
		MilestoneID: milestoneID,
		DurationMs:  req.DurationMs,
		Files:       files,
		Description: req.Description,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, worklog)
}

// List GET /contracts/:contractId/worklogs
func (h *WorklogHandler) List(c *gin.Context) {
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

	var status *string
	if raw := c.Query("status"); raw != "" {
		status = &raw
	}

	limit, offset := common.GetPagination(c)
	worklogs, err := h.svc.List(c.Request.Context(), userID, contractID, status, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.ListResponse{
		Items:  worklogs,
		Limit:  limit,
		Offset: offset,
	})
}

// Get GET /contracts/:contractId/worklogs/:worklogId
func (h *WorklogHandler) Get(c *gin.Context) {
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

	worklog, err := h.svc.Get(c.Request.Context(), userID, contractID, c.Param("worklogId"))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, worklog)
}

// CheckValidation GET /contracts/:contractId/worklogs/validation
func (h *WorklogHandler) CheckValidation(c *gin.Context) {
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

	res, err := h.svc.CheckValidation(c.Request.Context(), userID, contractID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.WorklogEligibilityResponse{
		Eligible:    res.Eligible,
		Reason:      res.Reason,
		HoursWorked: res.HoursWorked,
		WeeklyLimit: res.WeeklyLimit,
	})
}

// Review POST /contracts/:contractId/worklogs/:worklogId/review
func (h *WorklogHandler) Review(c *gin.Context) {
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

	var req dto.ReviewWorklogRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	worklog, err := h.svc.Review(c.Request.Context(), userID, contractID, c.Param("worklogId"), req.Approve, req.Message)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, worklog)
}

// RaiseDispute POST /contracts/:contractId/worklogs/:worklogId/dispute
func (h *WorklogHandler) RaiseDispute(c *gin.Context) {
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

	var req dto.RaiseWorklogDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.svc.RaiseDispute(c.Request.Context(), userID, contractID, c.Param("worklogId"), req.Description)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, dispute)
}

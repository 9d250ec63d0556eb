package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillbase/skillbase-backend/internal/middleware"
	"github.com/skillbase/skillbase-backend/internal/model"
	"github.com/skillbase/skillbase-backend/internal/response"
	"github.com/skillbase/skillbase-backend/internal/service"
	"github.com/skillbase/skillbase-backend/internal/validator"
)

// AssessmentHandler handles the org-admin assessment management endpoints.
type AssessmentHandler struct {
	assessments *service.AssessmentService
	sessions    *service.SessionService
	log         zerolog.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessments *service.AssessmentService, sessions *service.SessionService, log zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		assessments: assessments,
		sessions:    sessions,
		log:         log.With().Str("component", "assessment_handler").Logger(),
	}
}

// ListAssessments godoc
// GET /api/v1/admin/assessments
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := pageParams(c)

	items, total, err := h.assessments.List(c.Request.Context(), actor, perPage, (page-1)*perPage)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"assessments": items}, paginate(page, perPage, total))
}

// CreateAssessment godoc
// POST /api/v1/admin/assessments
// Creates a new draft assessment in the caller's organization.
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.assessments.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assessment": a})
}

// GetAssessment godoc
// GET /api/v1/admin/assessments/:assessment_id
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	a, err := h.assessments.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": a})
}

// PublishAssessment godoc
// POST /api/v1/admin/assessments/:assessment_id/publish
func (h *AssessmentHandler) PublishAssessment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.assessments.Publish(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.AssessmentStatusPublished})
}

// ArchiveAssessment godoc
// POST /api/v1/admin/assessments/:assessment_id/archive
func (h *AssessmentHandler) ArchiveAssessment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.assessments.Archive(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.AssessmentStatusArchived})
}

// ListResults godoc
// GET /api/v1/admin/assessments/:assessment_id/results
// Lists the assessment's sessions for review, newest finishers first.
func (h *AssessmentHandler) ListResults(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := pageParams(c)

	sessions, total, err := h.assessments.Results(c.Request.Context(), actor, id, perPage, (page-1)*perPage)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, paginate(page, perPage, total))
}

// SweepSessions godoc
// POST /api/v1/admin/sessions/sweep
// Force-expires the org's overdue sessions immediately instead of waiting
// for the background sweeper.
func (h *AssessmentHandler) SweepSessions(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	expired, err := h.sessions.ExpireStale(c.Request.Context(), actor.OrgID)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"expired": expired})
}

func (h *AssessmentHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrNotDraft)
	case errors.Is(err, service.ErrEmptyDeck):
		response.Fail(c, http.StatusConflict, response.ErrEmptyDeck)
	default:
		h.log.Error().Err(err).Msg("assessment operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func paginate(page, perPage, total int) *response.Pagination {
	totalPages := total / perPage
	if total%perPage != 0 {
		totalPages++
	}
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

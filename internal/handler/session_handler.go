package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skillbase/skillbase-backend/internal/engine"
	"github.com/skillbase/skillbase-backend/internal/middleware"
	"github.com/skillbase/skillbase-backend/internal/model"
	"github.com/skillbase/skillbase-backend/internal/response"
	"github.com/skillbase/skillbase-backend/internal/service"
	"github.com/skillbase/skillbase-backend/internal/validator"
)

// SessionHandler handles the candidate-facing session lifecycle endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/assessments/:assessment_id/sessions
// Starts a new session or resumes the caller's in-progress one.
func (h *SessionHandler) StartSession(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.StartSessionRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	session, err := h.sessions.StartSession(c.Request.Context(), actor, assessmentID, req.AccessCode, c.ClientIP())
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GetState godoc
// GET /api/v1/sessions/:session_id
// Returns the session, its ledger, the questions and the remaining time.
func (h *SessionHandler) GetState(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.sessions.GetState(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Records an answer for one question of an in-progress session.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	isCorrect, err := h.sessions.SubmitAnswer(c.Request.Context(), actor, sessionID, &req)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"is_correct": isCorrect})
}

// CompleteSession godoc
// POST /api/v1/sessions/:session_id/complete
// Scores the session and transitions it to completed.
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessions.CompleteSession(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetPercentile godoc
// GET /api/v1/sessions/:session_id/percentile
// Ranks a finished session among all terminal sessions of its assessment.
func (h *SessionHandler) GetPercentile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	percentile, err := h.sessions.GetPercentile(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"percentile": percentile})
}

// RecordTabSwitch godoc
// POST /api/v1/sessions/:session_id/tab-switch
// Bumps the proctoring telemetry counter.
func (h *SessionHandler) RecordTabSwitch(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessions.RecordTabSwitch(c.Request.Context(), actor, sessionID); err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recorded": true})
}

// failSession maps service and eligibility errors onto API error codes.
func (h *SessionHandler) failSession(c *gin.Context, err error) {
	var cooldown *engine.CooldownError

	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, engine.ErrNotPublished):
		response.Fail(c, http.StatusForbidden, response.ErrNotPublished)
	case errors.Is(err, engine.ErrInvalidAccessCode):
		response.Fail(c, http.StatusForbidden, response.ErrInvalidAccessCode)
	case errors.Is(err, engine.ErrNotYetOpen):
		response.Fail(c, http.StatusForbidden, response.ErrNotYetOpen)
	case errors.Is(err, engine.ErrClosed):
		response.Fail(c, http.StatusForbidden, response.ErrClosed)
	case errors.Is(err, engine.ErrMaxAttemptsReached):
		response.Fail(c, http.StatusForbidden, response.ErrMaxAttemptsReached)
	case errors.As(err, &cooldown):
		response.FailWithMessage(c, http.StatusForbidden, response.ErrCooldownActive,
			fmt.Sprintf("Cooldown active. Try again in %d minutes.", cooldown.MinutesLeft))
	case errors.Is(err, service.ErrEmptyDeck):
		response.Fail(c, http.StatusConflict, response.ErrEmptyDeck)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
	case errors.Is(err, service.ErrQuestionNotInSession):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInSession)
	case errors.Is(err, service.ErrNotScored):
		response.Fail(c, http.StatusConflict, response.ErrNotScored)
	default:
		h.log.Error().Err(err).Msg("session operation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

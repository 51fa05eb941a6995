package handler

import (
	"net/http"

	"github.com/examind/examind-backend/internal/middleware"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/response"
	"github.com/examind/examind-backend/internal/service"
	"github.com/examind/examind-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles the session lifecycle endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
	proctorService *service.ProctorService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, proctorService *service.ProctorService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		proctorService: proctorService,
	}
}

// identityFromClaims parses the caller's identity id out of its claims.
func identityFromClaims(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}
	identityID, err := claims.IdentityID()
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return nil, uuid.Nil, false
	}
	return claims, identityID, true
}

// Start godoc
// POST /api/v1/sessions
// Starts a session, or returns the caller's existing active one. Registrant
// tokens are scoped to a single exam and may only start that exam.
func (h *SessionHandler) Start(c *gin.Context) {
	claims, identityID, ok := identityFromClaims(c)
	if !ok {
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	publicOnly := claims.TokenType == service.TokenTypeRegistrant
	if publicOnly && claims.ExamID != req.ExamID.String() {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), identityID, req.ExamID, publicOnly)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Active godoc
// GET /api/v1/sessions/active
// Returns the caller's current session. A session whose deadline has passed
// comes back already finalized, score included.
func (h *SessionHandler) Active(c *gin.Context) {
	_, identityID, ok := identityFromClaims(c)
	if !ok {
		return
	}

	session, err := h.sessionService.ActiveSession(c.Request.Context(), identityID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Records one answer. Re-answering the same question overwrites.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	_, identityID, ok := identityFromClaims(c)
	if !ok {
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

	if err := h.sessionService.SubmitAnswer(c.Request.Context(), sessionID, identityID, req.QuestionID, req.SelectedOption); err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// ListAnswers godoc
// GET /api/v1/sessions/:session_id/answers
// Returns the answers recorded so far, for client resume after reconnect.
func (h *SessionHandler) ListAnswers(c *gin.Context) {
	_, identityID, ok := identityFromClaims(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	answers, err := h.sessionService.Answers(c.Request.Context(), sessionID, identityID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	if answers == nil {
		answers = []model.AnswerRecord{}
	}

	response.Success(c, http.StatusOK, gin.H{"answers": answers})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Finalizes the session and returns its result. Safe to retry: repeats
// return the stored result unchanged.
func (h *SessionHandler) Submit(c *gin.Context) {
	_, identityID, ok := identityFromClaims(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, identityID); err != nil {
		failSessionError(c, err)
		return
	}

	result, err := h.sessionService.Finalize(c.Request.Context(), sessionID, model.ReasonUserSubmit)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Result godoc
// GET /api/v1/sessions/:session_id/result
// Returns the stored result of a finalized session.
func (h *SessionHandler) Result(c *gin.Context) {
	_, identityID, ok := identityFromClaims(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, identityID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	result := session.Result()
	if result == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoResult)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// RecordEvent godoc
// POST /api/v1/sessions/:session_id/events
// Ingests a proctoring event. If the event trips the policy's hard cap the
// response carries the forced finalization result.
func (h *SessionHandler) RecordEvent(c *gin.Context) {
	_, identityID, ok := identityFromClaims(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, identityID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	result, err := h.proctorService.Record(c.Request.Context(), session, req)
	if err != nil {
		failSessionError(c, err)
		return
	}

	if result != nil {
		response.Success(c, http.StatusOK, gin.H{
			"recorded":   true,
			"terminated": true,
			"result":     result,
		})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recorded": true, "terminated": false})
}

// Abandon godoc
// POST /api/v1/admin/sessions/:session_id/abandon
// Administratively invalidates a session. The session becomes terminal with
// no score.
func (h *SessionHandler) Abandon(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.Abandon(c.Request.Context(), sessionID); err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/examind/examind-backend/internal/response"
	"github.com/examind/examind-backend/internal/service"
	"github.com/examind/examind-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// questionGetter is the slice of the question bank the review flow needs.
type questionGetter interface {
	GetQuestion(ctx context.Context, questionID uuid.UUID) (*model.Question, error)
}

// AdvisorHandler handles post-exam tutoring explanations.
type AdvisorHandler struct {
	sessionService *service.SessionService
	advisorService *service.AdvisorService
	questions      questionGetter
}

// NewAdvisorHandler creates a new AdvisorHandler.
func NewAdvisorHandler(sessionService *service.SessionService, advisorService *service.AdvisorService, questions questionGetter) *AdvisorHandler {
	return &AdvisorHandler{
		sessionService: sessionService,
		advisorService: advisorService,
		questions:      questions,
	}
}

// Explain godoc
// POST /api/v1/advisor/explain
// Returns a tutoring explanation for one question of the caller's finalized
// session. Only available after the session is terminal: explanations are a
// review surface, never an in-exam aid.
func (h *AdvisorHandler) Explain(c *gin.Context) {
	_, identityID, ok := identityFromClaims(c)
	if !ok {
		return
	}

	var req model.ExplainRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.GetOwned(c.Request.Context(), req.SessionID, identityID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	if !session.State.Terminal() {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
		return
	}

	question, err := h.questions.GetQuestion(c.Request.Context(), req.QuestionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if question.ExamID != session.ExamID {
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInExam)
		return
	}

	// Prefer the stored answer over the client's claim.
	submitted := req.SubmittedAnswer
	if answers, err := h.sessionService.Answers(c.Request.Context(), req.SessionID, identityID); err == nil {
		for _, a := range answers {
			if a.QuestionID == req.QuestionID && a.SelectedOption != nil {
				submitted = *a.SelectedOption
				break
			}
		}
	}

	explanation := h.advisorService.Explain(c.Request.Context(), question, submitted)
	response.Success(c, http.StatusOK, gin.H{"explanation": explanation})
}

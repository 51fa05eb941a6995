package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/examind/examind-backend/internal/middleware"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/service"
	ws "github.com/examind/examind-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a session over WebSocket: answers, proctoring events,
// and submission all ride one connection.
type WSHandler struct {
	sessionService *service.SessionService
	proctorService *service.ProctorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, proctorService *service.ProctorService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		proctorService: proctorService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for real-time answer capture and event ingestion.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	identityID, err := claims.IdentityID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	// Ownership check before the upgrade: foreign sessions never stream.
	if _, err := h.sessionService.GetOwned(c.Request.Context(), sessionID, identityID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID.String()).
		Str("identity_id", identityID.String()).
		Logger()
	wsLog.Info().Msg("Session stream connected")

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			if h.handleAnswer(conn, wsLog, sessionID, identityID, &msg) {
				return
			}
		case ws.ActionEvent:
			if h.handleEvent(conn, wsLog, sessionID, identityID, &msg) {
				return
			}
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, sessionID)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "", "unknown action: "+string(msg.Action))
		}
	}
}

// handleAnswer records one answer. Returns true when the session turned
// terminal and the stream must end.
func (h *WSHandler) handleAnswer(conn *websocket.Conn, wsLog zerolog.Logger, sessionID, identityID uuid.UUID, msg *ws.RequestEnvelope) bool {
	ctx := context.Background()

	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "INVALID_ID", "invalid question_id format")
		return false
	}
	if msg.SelectedOption == "" {
		ws.WriteError(conn, "INVALID_PAYLOAD", "selected_option is required")
		return false
	}

	err = h.sessionService.SubmitAnswer(ctx, sessionID, identityID, questionID, msg.SelectedOption)
	switch {
	case err == nil:
		ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: questionID.String()})
		return false
	case errors.Is(err, service.ErrDeadlinePassed), errors.Is(err, service.ErrSessionNotActive):
		h.writeTerminated(conn, sessionID, model.ReasonDeadlineExpiry)
		return true
	case errors.Is(err, service.ErrQuestionNotInExam):
		ws.WriteError(conn, "QUESTION_NOT_IN_EXAM", "question does not belong to this exam")
		return false
	default:
		wsLog.Error().Err(err).Msg("Answer save failed")
		ws.WriteError(conn, "INTERNAL_ERROR", "save failed")
		return false
	}
}

// handleEvent ingests one proctoring event. Returns true when the event
// terminated the session.
func (h *WSHandler) handleEvent(conn *websocket.Conn, wsLog zerolog.Logger, sessionID, identityID uuid.UUID, msg *ws.RequestEnvelope) bool {
	ctx := context.Background()

	eventType := model.EventType(msg.EventType)
	if !eventType.Valid() {
		ws.WriteError(conn, "INVALID_PAYLOAD", "unknown event_type: "+msg.EventType)
		return false
	}

	session, err := h.sessionService.GetOwned(ctx, sessionID, identityID)
	if err != nil {
		ws.WriteError(conn, "NOT_FOUND", "session not found")
		return true
	}

	result, err := h.proctorService.Record(ctx, session, model.RecordEventRequest{
		Type:     eventType,
		Metadata: msg.Metadata,
	})
	switch {
	case err == nil && result != nil:
		ws.WriteTyped(conn, ws.TerminatedResponse{
			Event:  ws.EventTerminated,
			Reason: model.ReasonIntegrityViolation,
			Result: result,
		})
		return true
	case err == nil:
		ws.WriteTyped(conn, ws.RecordedResponse{Event: ws.EventRecorded})
		return false
	case errors.Is(err, service.ErrDeadlinePassed), errors.Is(err, service.ErrSessionNotActive):
		h.writeTerminated(conn, sessionID, model.ReasonDeadlineExpiry)
		return true
	default:
		wsLog.Error().Err(err).Msg("Event ingestion failed")
		ws.WriteError(conn, "INTERNAL_ERROR", "event not recorded")
		return false
	}
}

// handleSubmit finalizes the session and sends the result.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	result, err := h.sessionService.Finalize(context.Background(), sessionID, model.ReasonUserSubmit)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		ws.WriteError(conn, "INTERNAL_ERROR", "submit failed")
		return
	}

	wsLog.Info().
		Int("percent", result.Score.Percent).
		Bool("passed", result.Score.Passed).
		Msg("Session submitted over stream")

	ws.WriteTyped(conn, ws.ResultResponse{Event: ws.EventResult, Result: result})
}

// writeTerminated reports an out-of-band finalization (deadline expiry) with
// the stored result when one exists.
func (h *WSHandler) writeTerminated(conn *websocket.Conn, sessionID uuid.UUID, reason model.FinalizeReason) {
	result, err := h.sessionService.Finalize(context.Background(), sessionID, reason)
	if err != nil {
		ws.WriteTyped(conn, ws.TerminatedResponse{Event: ws.EventTerminated, Reason: reason})
		return
	}
	ws.WriteTyped(conn, ws.TerminatedResponse{Event: ws.EventTerminated, Reason: result.Reason, Result: result})
}

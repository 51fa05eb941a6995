package service

import (
	"context"
	"fmt"

	"github.com/examind/examind-backend/internal/clock"
	"github.com/examind/examind-backend/internal/integrity"
	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventIncrementer bumps live proctoring counters and returns the session's
// current totals.
type EventIncrementer interface {
	Incr(ctx context.Context, sessionID uuid.UUID, t model.EventType) (integrity.Counts, error)
}

// ProctorService ingests integrity signals from active sessions. Every event
// is appended to the durable log via the sink; penalizable events also bump
// the live counters, and crossing the policy's hard cap forces the session to
// finalize on the spot.
type ProctorService struct {
	sink      EventSink
	counter   EventIncrementer
	finalizer SessionFinalizer
	clk       clock.Clock
	log       zerolog.Logger
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	sink EventSink,
	counter EventIncrementer,
	finalizer SessionFinalizer,
	clk clock.Clock,
	log zerolog.Logger,
) *ProctorService {
	return &ProctorService{
		sink:      sink,
		counter:   counter,
		finalizer: finalizer,
		clk:       clk,
		log:       log.With().Str("component", "proctor_service").Logger(),
	}
}

// Record ingests one proctoring event for the session. The returned result is
// non-nil only when the event pushed the session over its hard cap and the
// session was force-finalized. Events against terminal or overdue sessions
// are rejected, not logged.
func (s *ProctorService) Record(ctx context.Context, sess *model.ExamSession, req model.RecordEventRequest) (*model.SessionResult, error) {
	if sess.State.Terminal() {
		return nil, ErrSessionNotActive
	}
	if sess.Overdue(s.clk.Now()) {
		if _, err := s.finalizer.Finalize(ctx, sess.ID, model.ReasonDeadlineExpiry); err != nil {
			return nil, err
		}
		return nil, ErrDeadlinePassed
	}

	event := model.ProctoringEvent{
		SessionID:  sess.ID,
		Type:       req.Type,
		OccurredAt: s.clk.Now(),
		Metadata:   req.Metadata,
	}
	if err := s.sink.Enqueue(ctx, event); err != nil {
		return nil, fmt.Errorf("persist event: %w", err)
	}

	counts, err := s.counter.Incr(ctx, sess.ID, req.Type)
	if err != nil {
		// The event itself is persisted; a counter hiccup must not fail the
		// ingestion. The hard cap will be re-evaluated on the next event.
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Counter unavailable, skipping hard-cap check")
		return nil, nil
	}

	if integrity.HardCapExceeded(counts, sess.Policy.Proctoring) {
		s.log.Warn().
			Str("session_id", sess.ID.String()).
			Int("focus_lost", counts.FocusLost).
			Int("tab_switch", counts.TabSwitch).
			Int("webcam_flag", counts.WebcamFlag).
			Msg("Hard cap exceeded, forcing finalization")
		return s.finalizer.Finalize(ctx, sess.ID, model.ReasonIntegrityViolation)
	}
	return nil, nil
}

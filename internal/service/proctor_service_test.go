package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newProctorFixture(t *testing.T) (*engineFixture, *ProctorService, *fakeSink) {
	t.Helper()
	f := newEngineFixture(t)
	sink := &fakeSink{}
	proctor := NewProctorService(sink, f.counter, f.svc, f.clk, zerolog.Nop())
	return f, proctor, sink
}

func TestRecordAppendsEvent(t *testing.T) {
	f, proctor, sink := newProctorFixture(t)
	identity := uuid.New()

	sess, err := f.svc.Start(context.Background(), identity, f.exam.ID, false)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	res, err := proctor.Record(context.Background(), sess, model.RecordEventRequest{Type: model.EventFocusLost})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil below the hard cap", res)
	}
	if len(sink.events) != 1 {
		t.Fatalf("persisted events = %d, want 1", len(sink.events))
	}
	if sink.events[0].SessionID != sess.ID || sink.events[0].Type != model.EventFocusLost {
		t.Errorf("persisted event = %+v", sink.events[0])
	}
}

// The fixture policy tolerates one tab switch and hard-caps at two excess
// events, so the third tab switch forces finalization.
func TestRecordHardCapForcesFinalization(t *testing.T) {
	f, proctor, _ := newProctorFixture(t)
	identity := uuid.New()

	sess, err := f.svc.Start(context.Background(), identity, f.exam.ID, false)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var res *model.SessionResult
	for i := 0; i < 3; i++ {
		res, err = proctor.Record(context.Background(), sess, model.RecordEventRequest{Type: model.EventTabSwitch})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		if i < 2 && res != nil {
			t.Fatalf("Record %d force-finalized early: %+v", i, res)
		}
	}
	if res == nil {
		t.Fatal("third tab switch did not force finalization")
	}
	if res.Reason != model.ReasonIntegrityViolation {
		t.Errorf("reason = %s, want INTEGRITY_VIOLATION", res.Reason)
	}
	if !res.IntegrityViolation {
		t.Error("IntegrityViolation flag not set")
	}
	if res.State != model.SessionStateCompleted {
		t.Errorf("state = %s, want COMPLETED", res.State)
	}
	// 3 switches, 1 tolerated: 2 excess events at 0.1 each.
	if res.IntegrityScore != 0.8 {
		t.Errorf("integrity score = %f, want 0.8", res.IntegrityScore)
	}

	stored, err := f.sessions.GetByID(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.State.Terminal() {
		t.Errorf("session state = %s, want terminal", stored.State)
	}

	// Events against the now-terminal session are rejected.
	if _, err := proctor.Record(context.Background(), stored, model.RecordEventRequest{Type: model.EventTabSwitch}); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("record after finalize err = %v, want ErrSessionNotActive", err)
	}
}

func TestRecordReconnectNeverPenalized(t *testing.T) {
	f, proctor, sink := newProctorFixture(t)
	identity := uuid.New()

	sess, err := f.svc.Start(context.Background(), identity, f.exam.ID, false)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 10; i++ {
		res, err := proctor.Record(context.Background(), sess, model.RecordEventRequest{Type: model.EventReconnect})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		if res != nil {
			t.Fatalf("reconnect %d force-finalized the session", i)
		}
	}
	if len(sink.events) != 10 {
		t.Errorf("persisted events = %d, want 10", len(sink.events))
	}

	counts, err := f.counter.Counts(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.FocusLost != 0 || counts.TabSwitch != 0 || counts.WebcamFlag != 0 {
		t.Errorf("counts = %+v, want all zero", counts)
	}
}

func TestRecordAfterDeadlineExpiresSession(t *testing.T) {
	f, proctor, sink := newProctorFixture(t)
	identity := uuid.New()

	sess, err := f.svc.Start(context.Background(), identity, f.exam.ID, false)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.clk.Advance(90 * time.Second)

	if _, err := proctor.Record(context.Background(), sess, model.RecordEventRequest{Type: model.EventFocusLost}); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("err = %v, want ErrDeadlinePassed", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("event persisted past the deadline: %+v", sink.events)
	}

	stored, err := f.sessions.GetByID(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.State != model.SessionStateCompleted {
		t.Errorf("state = %s, want COMPLETED", stored.State)
	}
	if stored.Reason == nil || *stored.Reason != model.ReasonDeadlineExpiry {
		t.Errorf("reason = %v, want DEADLINE_EXPIRY", stored.Reason)
	}
}

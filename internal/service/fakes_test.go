package service

import (
	"context"
	"sync"
	"time"

	"github.com/examind/examind-backend/internal/integrity"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/examind/examind-backend/internal/scoring"
	"github.com/google/uuid"
)

// fakeSessionStore is an in-memory SessionStore with the same atomicity
// guarantees as the Postgres implementation: at most one non-terminal session
// per identity, enforced under a single lock.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ExamSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*model.ExamSession)}
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.IdentityID == s.IdentityID && !existing.State.Terminal() {
			return repository.ErrActiveSessionExists
		}
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetActiveByIdentity(_ context.Context, identityID uuid.UUID) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.IdentityID == identityID && !s.State.Terminal() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessionStore) Finalize(_ context.Context, fin model.Finalization) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[fin.SessionID]
	if !ok || s.State.Terminal() {
		return false, nil
	}
	score := fin.Score
	integrityScore := fin.IntegrityScore
	reason := fin.Reason
	completedAt := fin.CompletedAt
	s.State = fin.State
	s.Score = &score
	s.IntegrityScore = &integrityScore
	s.Reason = &reason
	s.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeSessionStore) Abandon(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.State.Terminal() {
		return false, nil
	}
	s.State = model.SessionStateAbandoned
	s.CompletedAt = &at
	return true, nil
}

func (f *fakeSessionStore) ListOverdue(_ context.Context, now time.Time, limit int) ([]model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamSession
	for _, s := range f.sessions {
		if !s.State.Terminal() && s.Overdue(now) {
			out = append(out, *s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type answerKeyT struct {
	questionID uuid.UUID
	option     string
	at         time.Time
}

type fakeAnswerStore struct {
	mu      sync.Mutex
	answers map[uuid.UUID][]answerKeyT
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{answers: make(map[uuid.UUID][]answerKeyT)}
}

func (f *fakeAnswerStore) Upsert(_ context.Context, sessionID, questionID uuid.UUID, option string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.answers[sessionID] {
		if a.questionID == questionID {
			f.answers[sessionID][i] = answerKeyT{questionID, option, at}
			return nil
		}
	}
	f.answers[sessionID] = append(f.answers[sessionID], answerKeyT{questionID, option, at})
	return nil
}

func (f *fakeAnswerStore) MapBySession(_ context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := make(map[uuid.UUID]string)
	for _, a := range f.answers[sessionID] {
		m[a.questionID] = a.option
	}
	return m, nil
}

func (f *fakeAnswerStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.AnswerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AnswerRecord
	for _, a := range f.answers[sessionID] {
		opt := a.option
		out = append(out, model.AnswerRecord{
			SessionID:      sessionID,
			QuestionID:     a.questionID,
			SelectedOption: &opt,
			AnsweredAt:     a.at,
		})
	}
	return out, nil
}

type fakeQuestionBank struct {
	mu    sync.Mutex
	exams map[uuid.UUID]*model.Exam
	keys  map[uuid.UUID]scoring.AnswerKey
}

func newFakeQuestionBank() *fakeQuestionBank {
	return &fakeQuestionBank{
		exams: make(map[uuid.UUID]*model.Exam),
		keys:  make(map[uuid.UUID]scoring.AnswerKey),
	}
}

func (f *fakeQuestionBank) add(e *model.Exam, key scoring.AnswerKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exams[e.ID] = e
	f.keys[e.ID] = key
}

func (f *fakeQuestionBank) GetByID(_ context.Context, examID uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeQuestionBank) AnswerKey(_ context.Context, examID uuid.UUID) (scoring.AnswerKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[examID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return key, nil
}

func (f *fakeQuestionBank) HasQuestion(_ context.Context, examID, questionID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[examID]
	if !ok {
		return false, nil
	}
	_, ok = key[questionID]
	return ok, nil
}

// fakeCounter returns fixed integrity counts and supports incrementing like
// the Redis-backed counter.
type fakeCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]integrity.Counts
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[uuid.UUID]integrity.Counts)}
}

func (f *fakeCounter) Counts(_ context.Context, sessionID uuid.UUID) (integrity.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[sessionID], nil
}

func (f *fakeCounter) Incr(_ context.Context, sessionID uuid.UUID, t model.EventType) (integrity.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.counts[sessionID]
	switch t {
	case model.EventFocusLost:
		c.FocusLost++
	case model.EventTabSwitch:
		c.TabSwitch++
	case model.EventWebcamFlag:
		c.WebcamFlag++
	}
	f.counts[sessionID] = c
	return c, nil
}

// fakeSink drops events after remembering them.
type fakeSink struct {
	mu     sync.Mutex
	events []model.ProctoringEvent
}

func (f *fakeSink) Enqueue(_ context.Context, e model.ProctoringEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

package scoring

import (
	"testing"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
)

func TestGrade(t *testing.T) {
	q1 := uuid.New()
	q2 := uuid.New()
	q3 := uuid.New()

	tests := []struct {
		name     string
		answers  map[uuid.UUID]string
		key      AnswerKey
		snapshot model.PolicySnapshot
		correct  int
		percent  int
		passed   bool
	}{
		{
			name:     "all correct",
			answers:  map[uuid.UUID]string{q1: "A", q2: "C"},
			key:      AnswerKey{q1: "A", q2: "C"},
			snapshot: model.PolicySnapshot{TotalQuestions: 2, PassingScorePercent: 50},
			correct:  2, percent: 100, passed: true,
		},
		{
			name:     "half correct hits inclusive threshold",
			answers:  map[uuid.UUID]string{q1: "A"},
			key:      AnswerKey{q1: "A", q2: "C"},
			snapshot: model.PolicySnapshot{TotalQuestions: 2, PassingScorePercent: 50},
			correct:  1, percent: 50, passed: true,
		},
		{
			name:     "unanswered counts incorrect",
			answers:  map[uuid.UUID]string{},
			key:      AnswerKey{q1: "A", q2: "C"},
			snapshot: model.PolicySnapshot{TotalQuestions: 2, PassingScorePercent: 50},
			correct:  0, percent: 0, passed: false,
		},
		{
			name:     "wrong answer counts incorrect",
			answers:  map[uuid.UUID]string{q1: "B", q2: "C"},
			key:      AnswerKey{q1: "A", q2: "C"},
			snapshot: model.PolicySnapshot{TotalQuestions: 2, PassingScorePercent: 51},
			correct:  1, percent: 50, passed: false,
		},
		{
			name:     "rounds half up",
			answers:  map[uuid.UUID]string{q1: "A"},
			key:      AnswerKey{q1: "A", q2: "B", q3: "C"},
			snapshot: model.PolicySnapshot{TotalQuestions: 3, PassingScorePercent: 33},
			correct:  1, percent: 33, passed: true,
		},
		{
			name:     "rounds two thirds up to 67",
			answers:  map[uuid.UUID]string{q1: "A", q2: "B"},
			key:      AnswerKey{q1: "A", q2: "B", q3: "C"},
			snapshot: model.PolicySnapshot{TotalQuestions: 3, PassingScorePercent: 67},
			correct:  2, percent: 67, passed: true,
		},
		{
			name:     "answer to unknown question ignored",
			answers:  map[uuid.UUID]string{uuid.New(): "A"},
			key:      AnswerKey{q1: "A"},
			snapshot: model.PolicySnapshot{TotalQuestions: 1, PassingScorePercent: 50},
			correct:  0, percent: 0, passed: false,
		},
		{
			name:     "zero snapshot total falls back to key size",
			answers:  map[uuid.UUID]string{q1: "A"},
			key:      AnswerKey{q1: "A", q2: "B"},
			snapshot: model.PolicySnapshot{TotalQuestions: 0, PassingScorePercent: 50},
			correct:  1, percent: 50, passed: true,
		},
		{
			name:     "empty key and zero total",
			answers:  map[uuid.UUID]string{},
			key:      AnswerKey{},
			snapshot: model.PolicySnapshot{TotalQuestions: 0, PassingScorePercent: 50},
			correct:  0, percent: 0, passed: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(tc.answers, tc.key, tc.snapshot)
			if got.CorrectCount != tc.correct {
				t.Fatalf("expected correct=%d, got=%d", tc.correct, got.CorrectCount)
			}
			if got.Percent != tc.percent {
				t.Fatalf("expected percent=%d, got=%d", tc.percent, got.Percent)
			}
			if got.Passed != tc.passed {
				t.Fatalf("expected passed=%v, got=%v", tc.passed, got.Passed)
			}
		})
	}
}

// Grading the same inputs repeatedly must always yield the same score.
func TestGradeDeterministic(t *testing.T) {
	key := AnswerKey{}
	answers := map[uuid.UUID]string{}
	for i := 0; i < 40; i++ {
		id := uuid.New()
		key[id] = "B"
		if i%3 == 0 {
			answers[id] = "B"
		} else if i%3 == 1 {
			answers[id] = "A"
		}
	}
	snapshot := model.PolicySnapshot{TotalQuestions: 40, PassingScorePercent: 30}

	first := Grade(answers, key, snapshot)
	for i := 0; i < 100; i++ {
		if got := Grade(answers, key, snapshot); got != first {
			t.Fatalf("run %d diverged: %+v != %+v", i, got, first)
		}
	}
}

// Package scoring grades a finished session against its exam's answer key.
// Grade is a pure function of its inputs: the session service guarantees it
// runs exactly once per session, the scorer itself just computes.
package scoring

import (
	"math"

	"github.com/examind/examind-backend/internal/model"
	"github.com/google/uuid"
)

// AnswerKey maps question id to the correct option.
type AnswerKey map[uuid.UUID]string

// Grade computes the score for a set of recorded answers. Unanswered
// questions count as incorrect. The denominator and the passing threshold
// come from the policy snapshot, not the live exam record.
func Grade(answers map[uuid.UUID]string, key AnswerKey, snapshot model.PolicySnapshot) model.Score {
	correct := 0
	for questionID, correctOption := range key {
		if selected, ok := answers[questionID]; ok && selected == correctOption {
			correct++
		}
	}

	total := snapshot.TotalQuestions
	if total <= 0 {
		total = len(key)
	}

	percent := 0
	if total > 0 {
		// Round half up; the tie at the passing threshold is inclusive.
		percent = int(math.Floor(float64(correct)/float64(total)*100 + 0.5))
	}

	return model.Score{
		CorrectCount:   correct,
		TotalQuestions: total,
		Percent:        percent,
		Passed:         percent >= snapshot.PassingScorePercent,
	}
}

package model

import "github.com/google/uuid"

// TutorResponse is the advisory explanation returned to a learner after an
// exam. Confidence distinguishes remote answers (~0.9+) from the local
// fallback (~0.8) so the UI can label provenance. Advisory content has no
// bearing on scoring.
type TutorResponse struct {
	Explanation   string   `json:"explanation"`
	Examples      []string `json:"examples"`
	RelatedTopics []string `json:"related_topics"`
	Confidence    float64  `json:"confidence"`
	Source        string   `json:"source"`
}

// ExplainRequest is the payload for requesting a tutoring explanation.
type ExplainRequest struct {
	SessionID       uuid.UUID `json:"session_id" binding:"required"`
	QuestionID      uuid.UUID `json:"question_id" binding:"required"`
	SubmittedAnswer string    `json:"submitted_answer" binding:"omitempty,max=10"`
}

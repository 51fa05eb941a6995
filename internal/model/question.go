package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Question represents a single exam question. CorrectOption and Explanation
// never leave the server except through post-exam review surfaces.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	ExamID        uuid.UUID       `json:"exam_id"`
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options"`
	CorrectOption string          `json:"correct_option,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	OrderNum      int             `json:"order_num"`
}

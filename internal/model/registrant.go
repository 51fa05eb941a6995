package model

import (
	"time"

	"github.com/google/uuid"
)

// Registrant is an anonymous identity bound to one publicly shared exam. The
// contact fingerprint keeps repeat registrations from the same person stable:
// re-submitting the form resolves to the same identity, never a duplicate.
type Registrant struct {
	ID                 uuid.UUID `json:"id"`
	ExamID             uuid.UUID `json:"exam_id"`
	ContactFingerprint string    `json:"-"`
	DisplayName        string    `json:"display_name"`
	CreatedAt          time.Time `json:"created_at"`
}

// RegisterRequest is the payload for registering on a shared exam link.
type RegisterRequest struct {
	FullName       string `json:"full_name" binding:"required,min=2,max=120"`
	ContactChannel string `json:"contact_channel" binding:"required,min=3,max=254"`
	DisplayName    string `json:"display_name" binding:"omitempty,max=60"`
}

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RegistrantStore persists anonymous registrants.
type RegistrantStore interface {
	Upsert(ctx context.Context, reg *model.Registrant) error
}

// RegistrationResult is what a successful public-exam registration yields.
type RegistrationResult struct {
	IdentityID  uuid.UUID `json:"identity_id"`
	ExamID      uuid.UUID `json:"exam_id"`
	DisplayName string    `json:"display_name"`
	Token       string    `json:"token"`
}

// AccessService gates public exam access: anonymous visitors register on a
// shared exam link and receive an exam-scoped registrant token.
type AccessService struct {
	bank        QuestionBank
	registrants RegistrantStore
	auth        *AuthService
	log         zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(bank QuestionBank, registrants RegistrantStore, auth *AuthService, log zerolog.Logger) *AccessService {
	return &AccessService{
		bank:        bank,
		registrants: registrants,
		auth:        auth,
		log:         log.With().Str("component", "access_service").Logger(),
	}
}

// Fingerprint derives a stable identity key from the registrant's name and
// contact channel. Case and surrounding/internal whitespace runs do not
// change the fingerprint, so casual re-typing of the same details resolves to
// the same identity.
func Fingerprint(fullName, contactChannel string) string {
	sum := sha256.Sum256([]byte(normalize(fullName) + "|" + normalize(contactChannel)))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Register admits an anonymous visitor to a public exam. Idempotent on the
// contact fingerprint: repeat registrations return the same identity with a
// fresh token.
func (s *AccessService) Register(ctx context.Context, examID uuid.UUID, req model.RegisterRequest) (*RegistrationResult, error) {
	exam, err := s.bank.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotAvailable
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsActive || !exam.IsPublic {
		return nil, ErrExamNotAvailable
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(req.FullName)
	}

	reg := &model.Registrant{
		ID:                 uuid.New(),
		ExamID:             examID,
		ContactFingerprint: Fingerprint(req.FullName, req.ContactChannel),
		DisplayName:        displayName,
	}
	if err := s.registrants.Upsert(ctx, reg); err != nil {
		return nil, fmt.Errorf("upsert registrant: %w", err)
	}

	token, err := s.auth.RegistrantToken(reg.ID, examID, reg.DisplayName)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("registrant_id", reg.ID.String()).
		Str("exam_id", examID.String()).
		Msg("Registrant admitted")

	return &RegistrationResult{
		IdentityID:  reg.ID,
		ExamID:      examID,
		DisplayName: reg.DisplayName,
		Token:       token,
	}, nil
}

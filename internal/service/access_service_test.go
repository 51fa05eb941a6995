package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fakeRegistrantStore mimics the fingerprint upsert: a repeat registration
// with the same (exam, fingerprint) pair resolves to the stored identity.
type fakeRegistrantStore struct {
	mu   sync.Mutex
	byFP map[string]*model.Registrant
}

func newFakeRegistrantStore() *fakeRegistrantStore {
	return &fakeRegistrantStore{byFP: make(map[string]*model.Registrant)}
}

func (f *fakeRegistrantStore) Upsert(_ context.Context, reg *model.Registrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reg.ExamID.String() + "/" + reg.ContactFingerprint
	if existing, ok := f.byFP[key]; ok {
		existing.DisplayName = reg.DisplayName
		reg.ID = existing.ID
		reg.CreatedAt = existing.CreatedAt
		return nil
	}
	cp := *reg
	f.byFP[key] = &cp
	return nil
}

func newAccessFixture(t *testing.T) (*AccessService, *fakeQuestionBank, *model.Exam) {
	t.Helper()
	bank := newFakeQuestionBank()
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           "Open Assessment",
		DurationMinutes: 30,
		IsPublic:        true,
		IsActive:        true,
	}
	bank.add(exam, scoring.AnswerKey{})

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: 3600000000000}
	auth := NewAuthService(cfg, nil, zerolog.Nop())
	svc := NewAccessService(bank, newFakeRegistrantStore(), auth, zerolog.Nop())
	return svc, bank, exam
}

func TestFingerprintNormalization(t *testing.T) {
	base := Fingerprint("Ada Lovelace", "ada@example.com")

	tests := []struct {
		name    string
		full    string
		contact string
		same    bool
	}{
		{"identical", "Ada Lovelace", "ada@example.com", true},
		{"case differs", "ADA lovelace", "Ada@Example.COM", true},
		{"whitespace runs", "  Ada   Lovelace ", " ada@example.com  ", true},
		{"different contact", "Ada Lovelace", "ada@other.example", false},
		{"different name", "Ada King", "ada@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.full, tt.contact)
			if (got == base) != tt.same {
				t.Errorf("Fingerprint(%q, %q) match = %v, want %v", tt.full, tt.contact, got == base, tt.same)
			}
		})
	}
}

func TestRegisterIsIdempotentOnFingerprint(t *testing.T) {
	svc, _, exam := newAccessFixture(t)

	req := model.RegisterRequest{FullName: "Ada Lovelace", ContactChannel: "ada@example.com"}
	first, err := svc.Register(context.Background(), exam.ID, req)
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}

	// Same person re-registers with cosmetic differences.
	req2 := model.RegisterRequest{FullName: " ada  LOVELACE ", ContactChannel: "ADA@example.com"}
	second, err := svc.Register(context.Background(), exam.ID, req2)
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if second.IdentityID != first.IdentityID {
		t.Errorf("identity changed across re-registration: %s vs %s", first.IdentityID, second.IdentityID)
	}
	if second.Token == "" {
		t.Error("re-registration returned no token")
	}
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
	svc, _, exam := newAccessFixture(t)

	res, err := svc.Register(context.Background(), exam.ID, model.RegisterRequest{
		FullName:       "Grace Hopper",
		ContactChannel: "grace@example.com",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.DisplayName != "Grace Hopper" {
		t.Errorf("display name = %q, want full name fallback", res.DisplayName)
	}
}

func TestRegisterRejectsNonPublicExam(t *testing.T) {
	svc, bank, _ := newAccessFixture(t)

	private := &model.Exam{ID: uuid.New(), IsPublic: false, IsActive: true}
	inactive := &model.Exam{ID: uuid.New(), IsPublic: true, IsActive: false}
	bank.add(private, scoring.AnswerKey{})
	bank.add(inactive, scoring.AnswerKey{})

	req := model.RegisterRequest{FullName: "Ada Lovelace", ContactChannel: "ada@example.com"}
	for _, examID := range []uuid.UUID{private.ID, inactive.ID, uuid.New()} {
		if _, err := svc.Register(context.Background(), examID, req); !errors.Is(err, ErrExamNotAvailable) {
			t.Errorf("exam %s: err = %v, want ErrExamNotAvailable", examID, err)
		}
	}
}

package service

import (
	"errors"
	"testing"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BcryptCost:        bcrypt.MinCost,
		AdminEmail:        "ops@example.com",
		AdminPasswordHash: string(hash),
	}
	return NewAuthService(cfg, nil, zerolog.Nop())
}

func TestRegistrantTokenRoundTrip(t *testing.T) {
	auth := newAuthFixture(t)
	identityID := uuid.New()
	examID := uuid.New()

	token, err := auth.RegistrantToken(identityID, examID, "Ada")
	if err != nil {
		t.Fatalf("RegistrantToken: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != TokenTypeRegistrant {
		t.Errorf("token type = %s, want registrant", claims.TokenType)
	}
	got, err := claims.IdentityID()
	if err != nil {
		t.Fatalf("IdentityID: %v", err)
	}
	if got != identityID {
		t.Errorf("identity = %s, want %s", got, identityID)
	}
	if claims.ExamID != examID.String() {
		t.Errorf("exam scope = %s, want %s", claims.ExamID, examID)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	auth := newAuthFixture(t)
	token, err := auth.RegistrantToken(uuid.New(), uuid.New(), "Ada")
	if err != nil {
		t.Fatalf("RegistrantToken: %v", err)
	}

	if _, err := auth.ValidateToken(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token err = %v, want ErrInvalidToken", err)
	}
	if _, err := auth.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token err = %v, want ErrInvalidToken", err)
	}
}

func TestAdminLogin(t *testing.T) {
	auth := newAuthFixture(t)

	token, err := auth.AdminLogin("ops@example.com", "admin-pass")
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != TokenTypeAdmin {
		t.Errorf("token type = %s, want admin", claims.TokenType)
	}

	if _, err := auth.AdminLogin("ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.AdminLogin("other@example.com", "admin-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAdminLoginDisabledWithoutCredentials(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "s", JWTExpiry: time.Hour}, nil, zerolog.Nop())
	if _, err := auth.AdminLogin("anyone@example.com", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// TokenType distinguishes the three identity kinds that can hold a token.
type TokenType string

const (
	TokenTypeLearner    TokenType = "learner"
	TokenTypeRegistrant TokenType = "registrant"
	TokenTypeAdmin      TokenType = "admin"
)

// Claims is the JWT payload. Subject carries the identity id. ExamID is set
// only on registrant tokens, scoping the anonymous identity to the single
// exam it registered for.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	Name      string    `json:"name,omitempty"`
	ExamID    string    `json:"exam_id,omitempty"`
}

// IdentityID parses the subject claim.
func (c *Claims) IdentityID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// AuthService issues and validates tokens for learners, registrants, and the
// operational admin.
type AuthService struct {
	cfg      *config.Config
	learners *repository.LearnerRepository
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, learners *repository.LearnerRepository, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		learners: learners,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

// LearnerLogin verifies credentials and issues a learner token.
func (s *AuthService) LearnerLogin(ctx context.Context, email, password string) (string, *model.Learner, error) {
	learner, err := s.learners.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(learner.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.sign(Claims{
		RegisteredClaims: s.registered(learner.ID.String()),
		TokenType:        TokenTypeLearner,
		Name:             learner.Name,
	})
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("learner_id", learner.ID.String()).Msg("Learner logged in")
	return token, learner, nil
}

// AdminLogin checks the configured admin credentials and issues an admin
// token. Rejected outright when admin credentials are not configured.
func (s *AuthService) AdminLogin(email, password string) (string, error) {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	if email != s.cfg.AdminEmail {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.sign(Claims{
		RegisteredClaims: s.registered(uuid.NewSHA1(uuid.NameSpaceURL, []byte(email)).String()),
		TokenType:        TokenTypeAdmin,
	})
	if err != nil {
		return "", err
	}

	s.log.Info().Msg("Admin logged in")
	return token, nil
}

// RegistrantToken issues a token for an anonymous registrant, scoped to the
// exam it registered on.
func (s *AuthService) RegistrantToken(identityID, examID uuid.UUID, displayName string) (string, error) {
	return s.sign(Claims{
		RegisteredClaims: s.registered(identityID.String()),
		TokenType:        TokenTypeRegistrant,
		Name:             displayName,
		ExamID:           examID.String(),
	})
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) registered(subject string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/salesdash/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput       = errors.New("email and password required")
	ErrDuplicateEmail     = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Identity is the authenticated caller.
type Identity struct {
	Email string
}

// Authenticator resolves a bearer token to an Identity.
type Authenticator interface {
	Authenticate(token string) (Identity, error)
}

type Service struct {
	db     *gorm.DB
	tokens *TokenIssuer
}

func NewService(db *gorm.DB, tokens *TokenIssuer) *Service {
	return &Service{db: db, tokens: tokens}
}

// Register creates a user and returns a fresh token for it.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrInvalidInput
	}

	exists, err := s.emailExists(ctx, email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrDuplicateEmail
	}

	user := models.User{Email: email}
	if err := user.SetPassword(password); err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// a concurrent registration may have won the unique index
		if exists, lookupErr := s.emailExists(ctx, email); lookupErr == nil && exists {
			return "", ErrDuplicateEmail
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(email)
}

// Login checks credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if !user.CheckPassword(password) {
		return "", ErrInvalidCredentials
	}

	return s.issue(email)
}

// Authenticate verifies a token. Every failure reason maps to ErrUnauthorized.
func (s *Service) Authenticate(token string) (Identity, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	return Identity{Email: email}, nil
}

func (s *Service) emailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return count > 0, nil
}

func (s *Service) issue(email string) (string, error) {
	token, err := s.tokens.Issue(email)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

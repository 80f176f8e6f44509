package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// Service checks the shop's single admin password.
type Service struct {
	hash []byte
}

// NewService constructs a Service from a bcrypt hash. An empty hash disables
// admin login.
func NewService(passwordHash string) *Service {
	return &Service{hash: []byte(passwordHash)}
}

// Authenticate compares password with the configured hash.
func (s *Service) Authenticate(_ context.Context, password string) error {
	if s == nil || len(s.hash) == 0 || password == "" {
		return shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return shared.ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// HashPassword produces a value suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", shared.NewValidationError("password", "is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

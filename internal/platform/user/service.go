package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// Service handles operator accounts and login
type Service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService creates a new user service
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log.WithField("component", "users"),
	}
}

// Register creates an operator account
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.ValidateEmail(); err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, u.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check if user exists: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("operator registered", "user_id", u.ID)
	return u, nil
}

// Login authenticates an operator. Unknown emails and wrong passwords both
// return ErrInvalidPassword.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := u.CheckPassword(password); err != nil {
		return nil, err
	}

	u.UpdateLastLogin()
	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Warn("failed to update last login", "user_id", u.ID, "error", err)
	}

	return u, nil
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxUserNameLength = 100

// UserServiceImpl implements ports.UserService.
type UserServiceImpl struct {
	userRepo ports.UserRepository
	log      zerolog.Logger
}

// NewUserService creates a new UserServiceImpl.
func NewUserService(userRepo ports.UserRepository, log zerolog.Logger) *UserServiceImpl {
	return &UserServiceImpl{userRepo: userRepo, log: log}
}

// CreateUser registers an account holder.
func (s *UserServiceImpl) CreateUser(ctx context.Context, name string) (*domain.AccountUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ErrInvalidRequest("name is required")
	}
	if len(name) > maxUserNameLength {
		return nil, apperror.ErrInvalidRequest(fmt.Sprintf("name must be at most %d bytes", maxUserNameLength))
	}

	now := time.Now().UTC()
	user := &domain.AccountUser{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user created")
	return user, nil
}

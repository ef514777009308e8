package service

import (
	"context"
	"fmt"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/outbox"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

type IdentityService struct {
	users   repository.UserRepository
	flusher *outbox.Flusher
	log     *logger.Logger
}

func NewIdentityService(users repository.UserRepository, flusher *outbox.Flusher, log *logger.Logger) *IdentityService {
	return &IdentityService{users: users, flusher: flusher, log: log.With("component", "IdentityService")}
}

type RegisterUserInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// RegisterUser creates a user. An email can be registered once.
func (s *IdentityService) RegisterUser(ctx context.Context, in RegisterUserInput) (*UserDTO, error) {
	const op = "service.IdentityService.RegisterUser"
	email, err := entity.NewEmail(in.Email)
	if err != nil {
		return nil, err
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, entity.Errorf(entity.CodeConflict, op, "user with email %s already exists", email)
	}

	user, err := entity.NewUser(email, in.Name, entity.UserRole(in.Role))
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	s.log.Info("User registered", "user_id", user.ID)
	return s.flush(ctx, user)
}

func (s *IdentityService) AddAddress(ctx context.Context, userID string, in AddressInput, makeDefault bool) (*UserDTO, error) {
	user, err := s.load(ctx, "service.IdentityService.AddAddress", userID)
	if err != nil {
		return nil, err
	}
	addr, err := in.toAddress()
	if err != nil {
		return nil, err
	}
	if err := user.AddAddress(addr, makeDefault); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return s.flush(ctx, user)
}

func (s *IdentityService) GetUser(ctx context.Context, userID string) (*UserDTO, error) {
	user, err := s.load(ctx, "service.IdentityService.GetUser", userID)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user), nil
}

func (s *IdentityService) load(ctx context.Context, op, userID string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, notFound(op, "user", userID)
	}
	return user, nil
}

func (s *IdentityService) flush(ctx context.Context, user *entity.User) (*UserDTO, error) {
	dto := toUserDTO(user)
	if err := s.flusher.Flush(ctx, user); err != nil {
		return nil, err
	}
	return dto, nil
}

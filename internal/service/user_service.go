package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/segara/lending-engine/internal/domain"
	"github.com/segara/lending-engine/internal/repository"
	"github.com/segara/lending-engine/pkg/auth"
	apperrors "github.com/segara/lending-engine/pkg/errors"
)

type UserService struct {
	userRepo repository.UserRepository
	jwt      *auth.JWTService
}

func NewUserService(userRepo repository.UserRepository, jwt *auth.JWTService) *UserService {
	return &UserService{
		userRepo: userRepo,
		jwt:      jwt,
	}
}

// Register creates a new customer account.
func (s *UserService) Register(ctx context.Context, request *domain.RegisterRequest) (*domain.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, request.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.WrapDatabaseError(err)
	}
	if existing != nil {
		return nil, apperrors.WrapEmailRegistered(request.Email)
	}

	hash, err := auth.HashPassword(request.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		FirstName:    request.FirstName,
		LastName:     request.LastName,
		Email:        request.Email,
		PasswordHash: hash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, request *domain.LoginRequest) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, request.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.WrapInvalidCredentials()
		}
		return "", apperrors.WrapDatabaseError(err)
	}

	if !auth.ComparePassword(user.PasswordHash, request.Password) {
		return "", apperrors.WrapInvalidCredentials()
	}

	return s.jwt.Generate(user.ID, user.IsAdmin)
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapUserNotFound(id.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return user, nil
}

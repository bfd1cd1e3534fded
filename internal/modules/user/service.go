package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
)

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, req RegisterRequest) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

type service struct {
	repo   Repository
	cost   int
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, cost: bcrypt.DefaultCost, logger: logger}
}

func (s *service) RegisterUser(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	if req.Role != RoleAdmin && req.StoreID == "" {
		return nil, apperr.Validation("STORE_REQUIRED", "store_id is required for role %s", req.Role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
	}
	if req.StoreID != "" {
		storeID := uuid.MustParse(req.StoreID)
		user.StoreID = &storeID
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Conflict("EMAIL_TAKEN", "email %s is already registered", req.Email)
		}
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("USER_NOT_FOUND", "user %s not found", id)
	}
	return user, err
}

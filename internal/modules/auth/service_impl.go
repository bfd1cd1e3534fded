package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/modules/user"
)

type service struct {
	userRepo user.Repository
	tokens   *Tokens
	logger   *zap.Logger
}

// NewService creates a new auth service.
func NewService(userRepo user.Repository, tokens *Tokens, logger *zap.Logger) Service {
	return &service{userRepo: userRepo, tokens: tokens, logger: logger}
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	u, err := s.userRepo.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, errInvalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login rejected", zap.String("user_id", u.ID.String()))
		return nil, errInvalidCredentials()
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Actor:     Actor{UserID: u.ID, Role: u.Role, StoreID: u.StoreID},
	}, nil
}

func errInvalidCredentials() error {
	return apperr.Unauthorized("INVALID_CREDENTIALS", "invalid credentials")
}

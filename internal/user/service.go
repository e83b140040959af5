package user

import (
	"context"
	"errors"
	"strings"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, name, email, password string) (string, *User, error)
	Login(ctx context.Context, email, password string) (string, *User, error)
	GetByID(ctx context.Context, id uint) (*User, error)
	List(ctx context.Context) ([]*User, error)
	// EnsureOperator creates the operator account when the email is not
	// registered yet. An existing account is left untouched.
	EnsureOperator(ctx context.Context, name, email, password string) error
}

type service struct {
	repo   Repository
	tokens *auth.Manager
}

func NewService(repo Repository, tokens *auth.Manager) Service {
	return &service{repo: repo, tokens: tokens}
}

func (s *service) Register(ctx context.Context, name, email, password string) (string, *User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return "", nil, ErrMissingFields
	}

	hashed, err := HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return "", nil, err
	}

	u, err := s.repo.Create(ctx, name, email, hashed, RoleUser)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		log.Error("failed to generate jwt", zap.Uint("user_id", u.ID), zap.Error(err))
		return "", nil, err
	}

	log.Info("user registered", zap.Uint("user_id", u.ID))
	return token, u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrMissingFields
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if !CheckPasswordHash(password, u.Password) {
		logger.FromCtx(ctx).Debug("password mismatch", zap.Uint("user_id", u.ID))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) GetByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

func (s *service) EnsureOperator(ctx context.Context, name, email, password string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "EnsureOperator"),
	)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return ErrMissingFields
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if !existing.IsOperator() {
			log.Warn("operator email belongs to a customer account", zap.Uint("user_id", existing.ID))
		}
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		name = "Seller"
	}

	u, err := s.repo.Create(ctx, name, email, hashed, RoleAdmin)
	if errors.Is(err, ErrEmailExists) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("operator account created", zap.Uint("user_id", u.ID))
	return nil
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/config"
	"github.com/xenon007/tasktracker/internal/models"
)

// UserStore is the persistence the identity service needs.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error)
	UserCredentials(ctx context.Context, email string) (models.User, string, error)
}

// Service registers and authenticates users.
type Service struct {
	users  UserStore
	tokens *Tokens
	cost   int
	logger *slog.Logger
}

// NewService wires the identity service.
func NewService(users UserStore, tokens *Tokens, cfg config.Auth, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, cost: cfg.BcryptCost, logger: logger}
}

// Register creates an account and returns its id.
func (s *Service) Register(ctx context.Context, name, email, password string) (int64, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return 0, apperr.New(apperr.KindInvalid, "name, email and password are required")
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return 0, apperr.Infra("register", err)
	}
	id, err := s.users.CreateUser(ctx, name, email, hash)
	if err != nil {
		return 0, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", id))
	return id, nil
}

// Authenticate verifies credentials and issues an identity token. An unknown
// email and a wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.Token, error) {
	user, hash, err := s.users.UserCredentials(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn("sign-in rejected", slog.String("reason", "unknown email"))
		return models.Token{}, apperr.ErrAuthFailed
	}
	if err != nil {
		return models.Token{}, err
	}

	ok, err := CheckPassword(hash, password)
	if err != nil {
		return models.Token{}, apperr.Infra("authenticate", err)
	}
	if !ok {
		s.logger.Warn("sign-in rejected", slog.Int64("user_id", user.ID), slog.String("reason", "password mismatch"))
		return models.Token{}, apperr.ErrAuthFailed
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return models.Token{}, apperr.Infra("authenticate", err)
	}
	return token, nil
}

// Verify validates a raw identity token.
func (s *Service) Verify(raw string) (Claims, error) {
	return s.tokens.Verify(raw)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/secure-task-manager/internal/config"
	"github.com/BuzzLyutic/secure-task-manager/internal/model"
	"github.com/BuzzLyutic/secure-task-manager/internal/repo"
)

// LoginResult - токен и публичный профиль пользователя
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.Identity
}

type AuthService struct {
	users  repo.UserRepository
	tokens tokenIssuer
	cost   int
	logger *zap.Logger
	now    func() time.Time

	// хэш для сравнения, когда пользователя нет: время ответа не выдает, существует ли логин
	dummyHash []byte
}

func NewAuthService(users repo.UserRepository, cfg *config.Config, logger *zap.Logger) *AuthService {
	s := &AuthService{
		users:  users,
		cost:   cfg.BcryptCost,
		logger: logger,
		now:    time.Now,
	}
	s.tokens = tokenIssuer{
		key: []byte(cfg.JWTSecret),
		ttl: cfg.TokenTTL,
		now: func() time.Time { return s.now() },
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), cfg.BcryptCost)
	return s
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (int64, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || strings.TrimSpace(password) == "" {
		return 0, fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return 0, fmt.Errorf("%w: password is too long", ErrValidation)
	}
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user.ID, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrorNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return LoginResult{}, ErrAuthentication
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrAuthentication
	}

	token, expiresAt, err := s.tokens.issue(user)
	if err != nil {
		return LoginResult{}, err
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Identity(),
	}, nil
}

// Verify проверяет подпись, алгоритм и срок действия токена
func (s *AuthService) Verify(token string) (model.Identity, error) {
	return s.tokens.verify(token)
}

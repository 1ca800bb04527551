package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"indichess/internal/domain"
	"indichess/internal/repository"
)

var (
	ErrInvalidName        = errors.New("name must be 4-50 characters")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("password must be 8-512 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
)

const (
	minNameLen     = 4
	maxNameLen     = 50
	minPasswordLen = 8
	maxPasswordLen = 512
)

// AuthService orquesta registro y login con contraseña.
type AuthService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	hasher  *PasswordHasher
	tokens  *TokenService
	limiter LoginRateLimiter
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, hasher *PasswordHasher, tokens *TokenService, limiter LoginRateLimiter) *AuthService {
	return &AuthService{
		logger:  logger,
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
	}
}

// Register valida los datos, hashea la contraseña y persiste el
// usuario. Las violaciones de unicidad del store salen como
// ErrDuplicateName/ErrDuplicateEmail, nunca como sobreescritura.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("auth service not configured")
	}

	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return domain.User{}, ErrInvalidName
	}

	email = normalizeEmail(email)
	if !isValidEmail(email) {
		return domain.User{}, ErrInvalidEmail
	}

	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return domain.User{}, ErrInvalidPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login verifica credenciales y emite un token con el email como
// subject. "Usuario inexistente" y "contraseña incorrecta" colapsan en
// ErrInvalidCredentials; el motivo real solo se loguea.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if s.users == nil {
		return "", errors.New("auth service not configured")
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	if s.limiter != nil && !s.limiter.Allow(email) {
		s.logger.Warn("login rate limited", zap.String("email", email))
		return "", ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("login for unknown email", zap.String("email", email))
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Debug("login with wrong password", zap.String("email", email))
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(user.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

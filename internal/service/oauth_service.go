package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"indichess/internal/domain"
	"indichess/internal/repository"
)

var ErrExternalIdentity = errors.New("external identity missing required claim")

// ExternalIdentity es la identidad ya verificada por el proveedor
// externo; este servicio solo consume su resultado.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// OAuthService convierte un login externo exitoso en un token local,
// creando la cuenta en el primer login si no existe.
type OAuthService struct {
	logger *zap.Logger
	users  repository.UserRepository
	hasher *PasswordHasher
	tokens *TokenService
}

func NewOAuthService(logger *zap.Logger, users repository.UserRepository, hasher *PasswordHasher, tokens *TokenService) *OAuthService {
	return &OAuthService{
		logger: logger,
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// LoginExternal resuelve la identidad externa contra el store y emite
// un token local. Sin claim de email el login se rechaza completo; no
// se crean cuentas parciales.
func (s *OAuthService) LoginExternal(ctx context.Context, identity ExternalIdentity) (string, error) {
	if s.users == nil {
		return "", errors.New("oauth service not configured")
	}

	email := normalizeEmail(identity.Email)
	if email == "" || !isValidEmail(email) {
		return "", ErrExternalIdentity
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		user, err = s.autoRegister(ctx, identity, email)
		if err != nil {
			return "", err
		}
		s.logger.Info("external login created account",
			zap.String("provider", identity.Provider),
			zap.String("email", email),
		)
	}

	return s.tokens.Issue(user.Email)
}

// autoRegister crea la cuenta del primer login externo. La contraseña
// es un secreto aleatorio que se hashea y descarta: la cuenta no puede
// autenticarse por el camino de contraseña.
func (s *OAuthService) autoRegister(ctx context.Context, identity ExternalIdentity, email string) (domain.User, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return domain.User{}, err
	}
	hash, err := s.hasher.Hash(hex.EncodeToString(secret))
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         displayNameFor(identity, email),
		Email:        email,
		PasswordHash: hash,
		AuthProvider: strings.ToLower(strings.TrimSpace(identity.Provider)),
		CreatedAt:    time.Now().UTC(),
	}

	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateName) {
		// Nombre tomado por otra cuenta: reintento con sufijo aleatorio.
		user.Name = suffixName(user.Name)
		err = s.users.Create(ctx, user)
	}
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// Registro concurrente del mismo email: usar la cuenta ganadora.
		return s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func displayNameFor(identity ExternalIdentity, email string) string {
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if utf8.RuneCountInString(name) < minNameLen {
		name = suffixName(name)
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	return name
}

func suffixName(name string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	runes := []rune(name)
	if len(runes)+1+len(suffix) > maxNameLen {
		runes = runes[:maxNameLen-1-len(suffix)]
	}
	return string(runes) + "-" + suffix
}

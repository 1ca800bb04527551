package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenService emite y valida tokens JWT firmados con HS256. El
// subject canónico es el email del usuario; emisión y validación usan
// el mismo campo para no romper el binding subject→store.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "indichess",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewTokenServiceWithClock permite inyectar el reloj, útil para
// fijar tiempos de emisión y validación.
func NewTokenServiceWithClock(secret string, ttl time.Duration, now func() time.Time) *TokenService {
	svc := NewTokenService(secret, ttl)
	if now != nil {
		svc.now = now
	}
	return svc
}

// Issue firma un token para el subject dado con expiración now+TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrTokenInvalid
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", ErrTokenInvalid
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate verifica firma y expiración y devuelve el subject. La firma
// se verifica antes de usar cualquier claim; un token alterado nunca
// llega al chequeo de expiración. Sin ventana de tolerancia de reloj.
func (s *TokenService) Validate(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrTokenInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return "", ErrTokenInvalid
	}
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		// Sin esto, bits de relleno base64 no canónicos pasarían la
		// decodificación y un byte final alterado podría validar.
		jwt.WithStrictDecoding(),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrTokenInvalid
	}
	return subject, nil
}

// TTL expone la duración configurada de los tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

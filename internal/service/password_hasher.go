package service

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher encapsula el hashing de contraseñas con bcrypt.
// El salt queda embebido en el digest, por lo que el mismo texto
// produce un digest distinto en cada llamada.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// prehash reduce el texto plano a un digest SHA-256 en base64. bcrypt
// solo acepta hasta 72 bytes; sin este paso las contraseñas válidas de
// más de 72 bytes no podrían hashearse.
func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// Hash genera un digest bcrypt del texto plano.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(prehash(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify compara texto plano contra un digest. Un digest malformado
// (no producido por este hasher) devuelve false, nunca panic.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), prehash(plaintext)) == nil
}

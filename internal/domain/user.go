package domain

import "time"

// User representa una cuenta registrada. El hash de contraseña nunca
// se serializa hacia el cliente.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AuthProvider string    `json:"auth_provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

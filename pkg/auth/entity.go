package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is a domain entity representing a system user.
// Credits mirrors the ledger balance; it is moved only by the credits service.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	Credits      int       `json:"credits"`
	CreatedAt    time.Time `json:"createdAt"`
}

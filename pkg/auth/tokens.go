package auth

import (
	"context"

	"github.com/google/uuid"
)

// TokenGenerator abstracts token creation (e.g., JWT).
// It allows use cases to stay framework-agnostic.
type TokenGenerator interface {
	Generate(ctx context.Context, user User) (string, error)
}

// CreditGranter seeds the balance of a freshly registered account.
type CreditGranter interface {
	Grant(ctx context.Context, userID uuid.UUID, amount int) error
}

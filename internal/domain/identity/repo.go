package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence interface for users and verification
// tokens. Lookups return (nil, nil) when no row exists.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	RecordLogin(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)

	CreateToken(ctx context.Context, t *VerificationToken) error
	GetToken(ctx context.Context, token string) (*VerificationToken, error)
	DeleteTokensForUser(ctx context.Context, userID uuid.UUID) error
}

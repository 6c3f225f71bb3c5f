package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

// Repository is the persistence interface for drugs and the usage ledger.
// GetForUpdate locks the drug row for the duration of the surrounding
// transaction. Lookups return (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, d *Drug) error
	Get(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Drug, error)
	GetForUpdate(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Drug, error)
	Update(ctx context.Context, d *Drug) error
	UpdateStock(ctx context.Context, owner scope.Owner, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, owner scope.Owner, id uuid.UUID) error
	List(ctx context.Context, owner scope.Owner, search string, limit, offset int) ([]*Drug, int, error)
	ListLowStock(ctx context.Context, owner scope.Owner, threshold int) ([]*Drug, error)

	CreateUsage(ctx context.Context, u *UsageRecord) error
	ListUsage(ctx context.Context, owner scope.Owner, drugID *uuid.UUID, limit, offset int) ([]*UsageRecord, int, error)
}

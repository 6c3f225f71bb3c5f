package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

// Repository is the persistence interface for patients. Every lookup is
// bounded by an owner; a patient outside the owner partition behaves as if
// it does not exist. Lookups return (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	Get(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, owner scope.Owner, id uuid.UUID) error
	SetLastDiagnosis(ctx context.Context, owner scope.Owner, id, diagnosisID uuid.UUID) error
	List(ctx context.Context, owner scope.Owner, search string, limit, offset int) ([]*Patient, int, error)
}

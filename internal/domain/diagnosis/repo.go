package diagnosis

import (
	"context"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

// Repository is the persistence interface for diagnoses. Lookups are
// bounded by owner and return (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, d *Diagnosis) error
	Get(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Diagnosis, error)
	Update(ctx context.Context, d *Diagnosis) error
	List(ctx context.Context, owner scope.Owner, patientID *uuid.UUID, limit, offset int) ([]*Diagnosis, int, error)
}

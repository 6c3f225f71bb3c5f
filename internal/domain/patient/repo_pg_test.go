package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/internal/platform/db"
)

// brokenRows yields no rows and reports a stream error afterwards, the
// way pgx surfaces a connection drop mid-result.
type brokenRows struct {
	err error
}

func (r *brokenRows) Close()                                       {}
func (r *brokenRows) Err() error                                   { return r.err }
func (r *brokenRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *brokenRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *brokenRows) Next() bool                                   { return false }
func (r *brokenRows) Scan(...any) error                            { return r.err }
func (r *brokenRows) Values() ([]any, error)                       { return nil, r.err }
func (r *brokenRows) RawValues() [][]byte                          { return nil }
func (r *brokenRows) Conn() *pgx.Conn                              { return nil }

type countRow struct{}

func (countRow) Scan(dest ...any) error {
	if n, ok := dest[0].(*int); ok {
		*n = 3
	}
	return nil
}

// brokenTx satisfies pgx.Tx just enough to route Query and QueryRow; the
// embedded nil interface panics on anything else.
type brokenTx struct {
	pgx.Tx
	rowsErr error
}

func (t *brokenTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &brokenRows{err: t.rowsErr}, nil
}

func (t *brokenTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return countRow{}
}

func TestList_SurfacesRowStreamError(t *testing.T) {
	streamErr := errors.New("unexpected EOF")
	repo := NewRepoPG(nil)
	ctx := db.ContextWithTx(context.Background(), &brokenTx{rowsErr: streamErr})

	_, _, err := repo.List(ctx, scope.Individual(uuid.New()).Owner(), "", 20, 0)
	if !errors.Is(err, streamErr) {
		t.Fatalf("expected the stream error to surface, got %v", err)
	}
}

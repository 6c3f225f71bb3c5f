package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/internal/platform/metrics"
)

var (
	ErrNotFound          = errors.New("drug not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// TxRunner executes fn inside a database transaction. Repositories that
// honor the transaction context see all statements on one connection.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo              Repository
	tx                TxRunner
	lowStockThreshold int
}

func NewService(repo Repository, tx TxRunner, lowStockThreshold int) *Service {
	return &Service{repo: repo, tx: tx, lowStockThreshold: lowStockThreshold}
}

// CreateInput carries caller-supplied drug fields; the owner is stamped
// from the active context.
type CreateInput struct {
	Name                 string   `json:"name"`
	GenericName          string   `json:"generic_name"`
	Form                 string   `json:"form"`
	Strength             string   `json:"strength"`
	StockQuantity        int      `json:"stock_quantity"`
	UnitsPerPack         int      `json:"units_per_pack"`
	PricePerPack         *float64 `json:"price_per_pack"`
	PrescriptionRequired bool     `json:"prescription_required"`
	Supplier             string   `json:"supplier"`
	Notes                string   `json:"notes"`
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if in.StockQuantity < 0 {
		return fmt.Errorf("stock_quantity cannot be negative")
	}
	if in.UnitsPerPack < 0 {
		return fmt.Errorf("units_per_pack cannot be negative")
	}
	if in.PricePerPack != nil && *in.PricePerPack < 0 {
		return fmt.Errorf("price_per_pack cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, sc scope.Scope, in *CreateInput) (*Drug, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	d := &Drug{
		Owner:                sc.Owner(),
		Name:                 strings.TrimSpace(in.Name),
		GenericName:          strings.TrimSpace(in.GenericName),
		Form:                 in.Form,
		Strength:             in.Strength,
		StockQuantity:        in.StockQuantity,
		UnitsPerPack:         in.UnitsPerPack,
		PricePerPack:         in.PricePerPack,
		PrescriptionRequired: in.PrescriptionRequired,
		Supplier:             strings.TrimSpace(in.Supplier),
		Notes:                in.Notes,
		CreatedBy:            sc.UserID,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create drug: %w", err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*Drug, error) {
	d, err := s.repo.Get(ctx, sc.Owner(), id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// Update replaces the editable fields, including a direct stock
// correction. Corrections bypass the ledger; dispensing and write-offs
// must use their dedicated operations.
func (s *Service) Update(ctx context.Context, sc scope.Scope, id uuid.UUID, in *CreateInput) (*Drug, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	d.Name = strings.TrimSpace(in.Name)
	d.GenericName = strings.TrimSpace(in.GenericName)
	d.Form = in.Form
	d.Strength = in.Strength
	d.StockQuantity = in.StockQuantity
	d.UnitsPerPack = in.UnitsPerPack
	d.PricePerPack = in.PricePerPack
	d.PrescriptionRequired = in.PrescriptionRequired
	d.Supplier = strings.TrimSpace(in.Supplier)
	d.Notes = in.Notes
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update drug: %w", err)
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, sc scope.Scope, id uuid.UUID) error {
	if _, err := s.Get(ctx, sc, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, sc.Owner(), id)
}

func (s *Service) List(ctx context.Context, sc scope.Scope, search string, limit, offset int) ([]*Drug, int, error) {
	return s.repo.List(ctx, sc.Owner(), strings.TrimSpace(search), limit, offset)
}

// LowStock returns drugs at or below the configured threshold.
func (s *Service) LowStock(ctx context.Context, sc scope.Scope) ([]*Drug, error) {
	return s.repo.ListLowStock(ctx, sc.Owner(), s.lowStockThreshold)
}

// UsageInput describes one stock-consuming operation.
type UsageInput struct {
	DrugID      uuid.UUID  `json:"drug_id"`
	Quantity    int        `json:"quantity"`
	Reason      string     `json:"reason"`
	PatientID   *uuid.UUID `json:"patient_id"`
	DiagnosisID *uuid.UUID `json:"diagnosis_id"`
}

// RecordUsage dispenses stock. The drug row is locked, the balance
// checked, the decrement and the ledger entry committed atomically.
// Dispensing exactly the remaining stock leaves zero; one unit more fails
// with ErrInsufficientStock and changes nothing.
func (s *Service) RecordUsage(ctx context.Context, sc scope.Scope, in *UsageInput) (*UsageRecord, error) {
	return s.consume(ctx, sc, in, UsageDispense)
}

// WriteOff removes expired or damaged stock. A reason is required.
func (s *Service) WriteOff(ctx context.Context, sc scope.Scope, in *UsageInput) (*UsageRecord, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("reason is required for a write-off")
	}
	return s.consume(ctx, sc, in, UsageWriteOff)
}

func (s *Service) consume(ctx context.Context, sc scope.Scope, in *UsageInput, kind string) (*UsageRecord, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	var rec *UsageRecord
	err := s.tx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, sc.Owner(), in.DrugID)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrNotFound
		}
		if d.StockQuantity < in.Quantity {
			return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientStock, d.StockQuantity, in.Quantity)
		}

		if err := s.repo.UpdateStock(ctx, sc.Owner(), d.ID, d.StockQuantity-in.Quantity); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}

		rec = &UsageRecord{
			Owner:       sc.Owner(),
			DrugID:      d.ID,
			DrugName:    d.Name,
			Kind:        kind,
			Quantity:    in.Quantity,
			Reason:      strings.TrimSpace(in.Reason),
			PatientID:   in.PatientID,
			DiagnosisID: in.DiagnosisID,
			ActorID:     sc.UserID,
		}
		return s.repo.CreateUsage(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	metrics.CountUsage(kind)
	return rec, nil
}

// ListUsage returns the ledger, newest first, optionally for one drug.
func (s *Service) ListUsage(ctx context.Context, sc scope.Scope, drugID *uuid.UUID, limit, offset int) ([]*UsageRecord, int, error) {
	return s.repo.ListUsage(ctx, sc.Owner(), drugID, limit, offset)
}

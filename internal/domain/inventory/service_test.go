package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

type mockRepo struct {
	drugs map[uuid.UUID]*Drug
	usage []*UsageRecord
}

func newMockRepo() *mockRepo {
	return &mockRepo{drugs: make(map[uuid.UUID]*Drug)}
}

func (m *mockRepo) Create(_ context.Context, d *Drug) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	m.drugs[d.ID] = d
	return nil
}

func (m *mockRepo) Get(_ context.Context, owner scope.Owner, id uuid.UUID) (*Drug, error) {
	d, ok := m.drugs[id]
	if !ok || d.Owner != owner {
		return nil, nil
	}
	return d, nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, owner scope.Owner, id uuid.UUID) (*Drug, error) {
	return m.Get(ctx, owner, id)
}

func (m *mockRepo) Update(_ context.Context, d *Drug) error {
	m.drugs[d.ID] = d
	return nil
}

func (m *mockRepo) UpdateStock(_ context.Context, owner scope.Owner, id uuid.UUID, quantity int) error {
	if d, ok := m.drugs[id]; ok && d.Owner == owner {
		d.StockQuantity = quantity
	}
	return nil
}

func (m *mockRepo) Delete(_ context.Context, owner scope.Owner, id uuid.UUID) error {
	if d, ok := m.drugs[id]; ok && d.Owner == owner {
		delete(m.drugs, id)
	}
	return nil
}

func (m *mockRepo) List(_ context.Context, owner scope.Owner, search string, limit, offset int) ([]*Drug, int, error) {
	var items []*Drug
	for _, d := range m.drugs {
		if d.Owner == owner {
			items = append(items, d)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListLowStock(_ context.Context, owner scope.Owner, threshold int) ([]*Drug, error) {
	var items []*Drug
	for _, d := range m.drugs {
		if d.Owner == owner && d.StockQuantity <= threshold {
			items = append(items, d)
		}
	}
	return items, nil
}

func (m *mockRepo) CreateUsage(_ context.Context, u *UsageRecord) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	m.usage = append(m.usage, u)
	return nil
}

func (m *mockRepo) ListUsage(_ context.Context, owner scope.Owner, drugID *uuid.UUID, limit, offset int) ([]*UsageRecord, int, error) {
	var items []*UsageRecord
	for _, u := range m.usage {
		if u.Owner != owner {
			continue
		}
		if drugID != nil && u.DrugID != *drugID {
			continue
		}
		items = append(items, u)
	}
	return items, len(items), nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, passthroughTx, 10)
}

func TestDispense_ExactStockReachesZero(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.Individual(uuid.New())
	ctx := context.Background()

	d, _ := svc.Create(ctx, sc, &CreateInput{Name: "Amoxicillin", StockQuantity: 5})

	rec, err := svc.RecordUsage(ctx, sc, &UsageInput{DrugID: d.ID, Quantity: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Kind != UsageDispense || rec.Quantity != 5 {
		t.Errorf("unexpected record: %+v", rec)
	}

	got, _ := svc.Get(ctx, sc, d.ID)
	if got.StockQuantity != 0 {
		t.Errorf("expected stock 0, got %d", got.StockQuantity)
	}
}

func TestDispense_OverStockFailsUnchanged(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.Individual(uuid.New())
	ctx := context.Background()

	d, _ := svc.Create(ctx, sc, &CreateInput{Name: "Amoxicillin", StockQuantity: 5})

	if _, err := svc.RecordUsage(ctx, sc, &UsageInput{DrugID: d.ID, Quantity: 6}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, _ := svc.Get(ctx, sc, d.ID)
	if got.StockQuantity != 5 {
		t.Errorf("stock changed on failed dispense: %d", got.StockQuantity)
	}
	if len(repo.usage) != 0 {
		t.Errorf("ledger entry written on failed dispense")
	}
}

func TestDispense_InvalidQuantity(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.Individual(uuid.New())
	ctx := context.Background()

	d, _ := svc.Create(ctx, sc, &CreateInput{Name: "Amoxicillin", StockQuantity: 5})

	for _, qty := range []int{0, -3} {
		if _, err := svc.RecordUsage(ctx, sc, &UsageInput{DrugID: d.ID, Quantity: qty}); err == nil {
			t.Errorf("expected error for quantity %d", qty)
		}
	}
}

func TestWriteOff_RequiresReason(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.Individual(uuid.New())
	ctx := context.Background()

	d, _ := svc.Create(ctx, sc, &CreateInput{Name: "Amoxicillin", StockQuantity: 5})

	if _, err := svc.WriteOff(ctx, sc, &UsageInput{DrugID: d.ID, Quantity: 2}); err == nil {
		t.Error("expected error for missing reason")
	}

	rec, err := svc.WriteOff(ctx, sc, &UsageInput{DrugID: d.ID, Quantity: 2, Reason: "expired"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Kind != UsageWriteOff || rec.Reason != "expired" {
		t.Errorf("unexpected record: %+v", rec)
	}
	got, _ := svc.Get(ctx, sc, d.ID)
	if got.StockQuantity != 3 {
		t.Errorf("expected stock 3, got %d", got.StockQuantity)
	}
}

func TestConsume_CrossPartitionNotFound(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	ctx := context.Background()

	d, _ := svc.Create(ctx, scope.Individual(userID), &CreateInput{Name: "Amoxicillin", StockQuantity: 5})

	org := scope.Organization(userID, uuid.New())
	if _, err := svc.RecordUsage(ctx, org, &UsageInput{DrugID: d.ID, Quantity: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound across partitions, got %v", err)
	}
}

func TestLedger_RecordsActorAndLinks(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	userID := uuid.New()
	sc := scope.Individual(userID)
	ctx := context.Background()

	d, _ := svc.Create(ctx, sc, &CreateInput{Name: "Amoxicillin", StockQuantity: 10})
	patientID := uuid.New()
	diagID := uuid.New()

	rec, err := svc.RecordUsage(ctx, sc, &UsageInput{
		DrugID: d.ID, Quantity: 3, PatientID: &patientID, DiagnosisID: &diagID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ActorID != userID {
		t.Errorf("unexpected actor: %s", rec.ActorID)
	}
	if rec.PatientID == nil || *rec.PatientID != patientID {
		t.Errorf("expected patient link")
	}
	if rec.DrugName != "Amoxicillin" {
		t.Errorf("expected drug name snapshot, got %q", rec.DrugName)
	}

	items, total, _ := svc.ListUsage(ctx, sc, &d.ID, 20, 0)
	if total != 1 || items[0].ID != rec.ID {
		t.Errorf("expected ledger entry, got %d", total)
	}
}

func TestLowStock(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	sc := scope.Individual(uuid.New())
	ctx := context.Background()

	svc.Create(ctx, sc, &CreateInput{Name: "Low", StockQuantity: 3})
	svc.Create(ctx, sc, &CreateInput{Name: "Plenty", StockQuantity: 500})

	items, err := svc.LowStock(ctx, sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Low" {
		t.Errorf("unexpected low stock list: %+v", items)
	}
}

func TestPackCounts(t *testing.T) {
	d := &Drug{StockQuantity: 25, UnitsPerPack: 10}
	if d.WholePacks() != 2 || d.LooseUnits() != 5 {
		t.Errorf("unexpected pack counts: %d/%d", d.WholePacks(), d.LooseUnits())
	}

	d = &Drug{StockQuantity: 7}
	if d.WholePacks() != 0 || d.LooseUnits() != 7 {
		t.Errorf("unexpected counts without pack size: %d/%d", d.WholePacks(), d.LooseUnits())
	}
}

// Package inventory manages the drug stock of a practice and its
// append-only usage ledger. Stock changes go through dispense and
// write-off operations that are atomic with their ledger entries; stock
// can never go negative.
package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

// Usage record kinds.
const (
	UsageDispense = "dispense"
	UsageWriteOff = "write_off"
)

// Drug is one inventory item inside an owner partition. Stock is tracked
// in loose units; pack counts are derived.
type Drug struct {
	ID                   uuid.UUID   `json:"id"`
	Owner                scope.Owner `json:"owner"`
	Name                 string      `json:"name"`
	GenericName          string      `json:"generic_name,omitempty"`
	Form                 string      `json:"form,omitempty"`
	Strength             string      `json:"strength,omitempty"`
	StockQuantity        int         `json:"stock_quantity"`
	UnitsPerPack         int         `json:"units_per_pack,omitempty"`
	PricePerPack         *float64    `json:"price_per_pack,omitempty"`
	PrescriptionRequired bool        `json:"prescription_required"`
	Supplier             string      `json:"supplier,omitempty"`
	Notes                string      `json:"notes,omitempty"`
	CreatedBy            uuid.UUID   `json:"created_by"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// WholePacks returns the number of complete packs in stock.
func (d *Drug) WholePacks() int {
	if d.UnitsPerPack <= 0 {
		return 0
	}
	return d.StockQuantity / d.UnitsPerPack
}

// LooseUnits returns the units left over after whole packs.
func (d *Drug) LooseUnits() int {
	if d.UnitsPerPack <= 0 {
		return d.StockQuantity
	}
	return d.StockQuantity % d.UnitsPerPack
}

// drugView adds the derived pack counts to the JSON shape.
type drugView struct {
	*Drug
	WholePacks int `json:"whole_packs"`
	LooseUnits int `json:"loose_units"`
}

// View returns the drug with derived fields populated for responses.
func (d *Drug) View() interface{} {
	return drugView{Drug: d, WholePacks: d.WholePacks(), LooseUnits: d.LooseUnits()}
}

// UsageRecord is one ledger entry. Records are never updated or deleted.
type UsageRecord struct {
	ID          uuid.UUID   `json:"id"`
	Owner       scope.Owner `json:"owner"`
	DrugID      uuid.UUID   `json:"drug_id"`
	DrugName    string      `json:"drug_name"`
	Kind        string      `json:"kind"`
	Quantity    int         `json:"quantity"`
	Reason      string      `json:"reason,omitempty"`
	PatientID   *uuid.UUID  `json:"patient_id,omitempty"`
	DiagnosisID *uuid.UUID  `json:"diagnosis_id,omitempty"`
	ActorID     uuid.UUID   `json:"actor_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

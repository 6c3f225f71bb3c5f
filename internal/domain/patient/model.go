// Package patient manages patient records. Every record is stamped with a
// polymorphic owner (a user for individual practice, an organization for
// shared practice); all reads and writes are filtered by the owner of the
// caller's active context.
package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

// Patient is one patient record inside an owner partition.
type Patient struct {
	ID              uuid.UUID   `json:"id"`
	Owner           scope.Owner `json:"owner"`
	Name            string      `json:"name"`
	Surname         string      `json:"surname,omitempty"`
	Age             *int        `json:"age,omitempty"`
	Gender          string      `json:"gender,omitempty"`
	ExternalID      string      `json:"external_id,omitempty"`
	Phone           string      `json:"phone,omitempty"`
	Email           string      `json:"email,omitempty"`
	MedicalHistory  string      `json:"medical_history,omitempty"`
	Allergies       []string    `json:"allergies,omitempty"`
	Medications     []string    `json:"medications,omitempty"`
	LastDiagnosisID *uuid.UUID  `json:"last_diagnosis_id,omitempty"`
	CreatedBy       uuid.UUID   `json:"created_by"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// FullName joins the name parts for display.
func (p *Patient) FullName() string {
	if p.Surname == "" {
		return p.Name
	}
	return p.Name + " " + p.Surname
}

// Package diagnosis manages diagnosis records: intake data captured from
// the clinician, the AI findings returned by the external workflow, and
// later manual edits. The application never generates medical content
// itself.
package diagnosis

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

// Drug suggestion sources.
const (
	SourceAI     = "ai"
	SourceManual = "manual"
)

// DrugSuggestion is one proposed medication on a diagnosis, either
// returned by the workflow or attached manually.
type DrugSuggestion struct {
	DrugName     string     `json:"drug_name"`
	Dosage       string     `json:"dosage,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	Priority     int        `json:"priority,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Source       string     `json:"source"`
	InventoryID  *uuid.UUID `json:"inventory_id,omitempty"`
}

// Diagnosis is one record inside an owner partition.
type Diagnosis struct {
	ID      uuid.UUID   `json:"id"`
	Owner   scope.Owner `json:"owner"`
	PatientID uuid.UUID `json:"patient_id"`

	// Intake as submitted.
	Complaint        string   `json:"complaint"`
	Symptoms         []string `json:"symptoms,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	HeartRate        *int     `json:"heart_rate,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation *int     `json:"oxygen_saturation,omitempty"`

	// Findings as returned by the workflow, possibly edited afterwards.
	PrimaryDiagnosis       string           `json:"primary_diagnosis"`
	DifferentialDiagnoses  []string         `json:"differential_diagnoses,omitempty"`
	RecommendedActions     []string         `json:"recommended_actions,omitempty"`
	Treatment              string           `json:"treatment,omitempty"`
	DrugSuggestions        []DrugSuggestion `json:"drug_suggestions,omitempty"`
	SeverityLevel          string           `json:"severity_level,omitempty"`
	ConfidenceScore        *float64         `json:"confidence_score,omitempty"`
	AdditionalNotes        string           `json:"additional_notes,omitempty"`
	FollowUpRecommendation string           `json:"follow_up_recommendation,omitempty"`

	CreatedBy    uuid.UUID  `json:"created_by"`
	LastEditedBy *uuid.UUID `json:"last_edited_by,omitempty"`
	EditLocation string     `json:"edit_location,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

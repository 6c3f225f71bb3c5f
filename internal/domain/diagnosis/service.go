package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mediq/mediq/internal/domain/patient"
	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/internal/platform/export"
	"github.com/mediq/mediq/internal/platform/metrics"
	"github.com/mediq/mediq/internal/platform/webhook"
)

var (
	ErrNotFound           = errors.New("diagnosis not found")
	ErrWorkflowFailed     = errors.New("diagnosis workflow failed")
	ErrWorkflowUnreadable = errors.New("diagnosis workflow returned an unreadable response")
)

// Diagnoser calls the external diagnosis workflow.
type Diagnoser interface {
	Diagnose(ctx context.Context, intake *webhook.IntakeRequest) (*webhook.Result, error)
}

// PatientSource resolves patients within the active context and records
// their latest diagnosis.
type PatientSource interface {
	Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*patient.Patient, error)
	RecordDiagnosis(ctx context.Context, sc scope.Scope, patientID, diagnosisID uuid.UUID) error
}

type Service struct {
	repo     Repository
	patients PatientSource
	workflow Diagnoser
}

func NewService(repo Repository, patients PatientSource, workflow Diagnoser) *Service {
	return &Service{repo: repo, patients: patients, workflow: workflow}
}

// SubmitInput is the clinician-entered intake for one diagnosis request.
type SubmitInput struct {
	PatientID        uuid.UUID `json:"patient_id"`
	Complaint        string    `json:"complaint"`
	Symptoms         []string  `json:"symptoms"`
	Temperature      *float64  `json:"temperature"`
	BloodPressure    string    `json:"blood_pressure"`
	HeartRate        *int      `json:"heart_rate"`
	RespiratoryRate  *int      `json:"respiratory_rate"`
	OxygenSaturation *int      `json:"oxygen_saturation"`
}

// Submit sends the intake to the workflow and persists the returned
// findings as a new diagnosis. Nothing is stored when the workflow call
// fails; the caller sees the failure directly. There are no retries.
func (s *Service) Submit(ctx context.Context, sc scope.Scope, in *SubmitInput) (*Diagnosis, error) {
	if strings.TrimSpace(in.Complaint) == "" {
		return nil, fmt.Errorf("complaint is required")
	}

	p, err := s.patients.Get(ctx, sc, in.PatientID)
	if err != nil {
		return nil, err
	}

	intake := &webhook.IntakeRequest{
		PatientID:        p.ID.String(),
		PatientName:      p.FullName(),
		Age:              p.Age,
		Gender:           p.Gender,
		Complaint:        in.Complaint,
		Symptoms:         in.Symptoms,
		MedicalHistory:   p.MedicalHistory,
		Allergies:        p.Allergies,
		Medications:      p.Medications,
		Temperature:      in.Temperature,
		BloodPressure:    in.BloodPressure,
		HeartRate:        in.HeartRate,
		RespiratoryRate:  in.RespiratoryRate,
		OxygenSaturation: in.OxygenSaturation,
	}

	result, err := s.workflow.Diagnose(ctx, intake)
	if err != nil {
		metrics.CountWebhookCall("failure")
		var statusErr *webhook.StatusError
		if errors.As(err, &statusErr) {
			log.Warn().Int("status", statusErr.Code).Msg("diagnosis workflow rejected intake")
			return nil, fmt.Errorf("%w: status %d", ErrWorkflowFailed, statusErr.Code)
		}
		return nil, fmt.Errorf("%w: %v", ErrWorkflowUnreadable, err)
	}
	metrics.CountWebhookCall("success")

	d := &Diagnosis{
		Owner:            sc.Owner(),
		PatientID:        p.ID,
		Complaint:        strings.TrimSpace(in.Complaint),
		Symptoms:         in.Symptoms,
		Temperature:      in.Temperature,
		BloodPressure:    in.BloodPressure,
		HeartRate:        in.HeartRate,
		RespiratoryRate:  in.RespiratoryRate,
		OxygenSaturation: in.OxygenSaturation,

		PrimaryDiagnosis:       result.PrimaryDiagnosis,
		DifferentialDiagnoses:  result.DifferentialDiagnoses,
		RecommendedActions:     result.RecommendedActions,
		Treatment:              result.Treatment,
		DrugSuggestions:        fromWebhookSuggestions(result.DrugSuggestions),
		SeverityLevel:          result.SeverityLevel,
		ConfidenceScore:        result.ConfidenceScore,
		AdditionalNotes:        result.AdditionalNotes,
		FollowUpRecommendation: result.FollowUpRecommendation,

		CreatedBy: sc.UserID,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("store diagnosis: %w", err)
	}

	if err := s.patients.RecordDiagnosis(ctx, sc, p.ID, d.ID); err != nil {
		log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("failed to link latest diagnosis")
	}
	return d, nil
}

func fromWebhookSuggestions(in []webhook.DrugSuggestion) []DrugSuggestion {
	out := make([]DrugSuggestion, 0, len(in))
	for _, s := range in {
		out = append(out, DrugSuggestion{
			DrugName:     s.DrugName,
			Dosage:       s.Dosage,
			Duration:     s.Duration,
			Priority:     s.Priority,
			Instructions: s.Instructions,
			Source:       SourceAI,
		})
	}
	return out
}

func (s *Service) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*Diagnosis, error) {
	d, err := s.repo.Get(ctx, sc.Owner(), id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, sc scope.Scope, patientID *uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	return s.repo.List(ctx, sc.Owner(), patientID, limit, offset)
}

// EditInput carries the manually editable findings.
type EditInput struct {
	PrimaryDiagnosis       string   `json:"primary_diagnosis"`
	DifferentialDiagnoses  []string `json:"differential_diagnoses"`
	RecommendedActions     []string `json:"recommended_actions"`
	Treatment              string   `json:"treatment"`
	SeverityLevel          string   `json:"severity_level"`
	AdditionalNotes        string   `json:"additional_notes"`
	FollowUpRecommendation string   `json:"follow_up_recommendation"`
	EditLocation           string   `json:"edit_location"`
}

// Edit replaces the findings and stamps the editor and where the edit was
// made. Intake data is immutable once submitted.
func (s *Service) Edit(ctx context.Context, sc scope.Scope, id uuid.UUID, in *EditInput) (*Diagnosis, error) {
	if strings.TrimSpace(in.PrimaryDiagnosis) == "" {
		return nil, fmt.Errorf("primary_diagnosis is required")
	}
	d, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	d.PrimaryDiagnosis = strings.TrimSpace(in.PrimaryDiagnosis)
	d.DifferentialDiagnoses = in.DifferentialDiagnoses
	d.RecommendedActions = in.RecommendedActions
	d.Treatment = in.Treatment
	d.SeverityLevel = in.SeverityLevel
	d.AdditionalNotes = in.AdditionalNotes
	d.FollowUpRecommendation = in.FollowUpRecommendation
	d.EditLocation = strings.TrimSpace(in.EditLocation)
	editor := sc.UserID
	d.LastEditedBy = &editor
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update diagnosis: %w", err)
	}
	return d, nil
}

// SuggestionInput describes a manually attached medication.
type SuggestionInput struct {
	DrugName     string     `json:"drug_name"`
	Dosage       string     `json:"dosage"`
	Duration     string     `json:"duration"`
	Instructions string     `json:"instructions"`
	InventoryID  *uuid.UUID `json:"inventory_id"`
}

// AttachSuggestion appends a manual drug suggestion to a diagnosis.
func (s *Service) AttachSuggestion(ctx context.Context, sc scope.Scope, id uuid.UUID, in *SuggestionInput) (*Diagnosis, error) {
	if strings.TrimSpace(in.DrugName) == "" {
		return nil, fmt.Errorf("drug_name is required")
	}
	d, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	d.DrugSuggestions = append(d.DrugSuggestions, DrugSuggestion{
		DrugName:     strings.TrimSpace(in.DrugName),
		Dosage:       in.Dosage,
		Duration:     in.Duration,
		Instructions: in.Instructions,
		Source:       SourceManual,
		InventoryID:  in.InventoryID,
	})
	editor := sc.UserID
	d.LastEditedBy = &editor
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update diagnosis: %w", err)
	}
	return d, nil
}

// Export renders a diagnosis as a downloadable document.
func (s *Service) Export(ctx context.Context, sc scope.Scope, id uuid.UUID, format export.Format) ([]byte, error) {
	d, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.Get(ctx, sc, d.PatientID)
	if err != nil {
		return nil, err
	}

	report := &export.Report{
		PatientName:           p.Name,
		PatientSurname:        p.Surname,
		Age:                   p.Age,
		Gender:                p.Gender,
		Complaint:             d.Complaint,
		Symptoms:              d.Symptoms,
		PrimaryDiagnosis:      d.PrimaryDiagnosis,
		DifferentialDiagnoses: d.DifferentialDiagnoses,
		RecommendedActions:    d.RecommendedActions,
		Treatment:             d.Treatment,
		SeverityLevel:         d.SeverityLevel,
		AdditionalNotes:       d.AdditionalNotes,
		CreatedAt:             d.CreatedAt,
	}
	for _, sug := range d.DrugSuggestions {
		report.DrugSuggestions = append(report.DrugSuggestions, export.ReportDrug{
			Name:         sug.DrugName,
			Dosage:       sug.Dosage,
			Duration:     sug.Duration,
			Instructions: sug.Instructions,
		})
	}
	return export.Render(format, report)
}

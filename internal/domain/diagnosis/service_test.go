package diagnosis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/patient"
	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/internal/platform/export"
	"github.com/mediq/mediq/internal/platform/webhook"
)

type mockRepo struct {
	diagnoses map[uuid.UUID]*Diagnosis
}

func newMockRepo() *mockRepo {
	return &mockRepo{diagnoses: make(map[uuid.UUID]*Diagnosis)}
}

func (m *mockRepo) Create(_ context.Context, d *Diagnosis) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	m.diagnoses[d.ID] = d
	return nil
}

func (m *mockRepo) Get(_ context.Context, owner scope.Owner, id uuid.UUID) (*Diagnosis, error) {
	d, ok := m.diagnoses[id]
	if !ok || d.Owner != owner {
		return nil, nil
	}
	return d, nil
}

func (m *mockRepo) Update(_ context.Context, d *Diagnosis) error {
	m.diagnoses[d.ID] = d
	return nil
}

func (m *mockRepo) List(_ context.Context, owner scope.Owner, patientID *uuid.UUID, limit, offset int) ([]*Diagnosis, int, error) {
	var items []*Diagnosis
	for _, d := range m.diagnoses {
		if d.Owner != owner {
			continue
		}
		if patientID != nil && d.PatientID != *patientID {
			continue
		}
		items = append(items, d)
	}
	return items, len(items), nil
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
	linked   map[uuid.UUID]uuid.UUID
}

func newMockPatients() *mockPatients {
	return &mockPatients{
		patients: make(map[uuid.UUID]*patient.Patient),
		linked:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockPatients) Get(_ context.Context, sc scope.Scope, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.Owner != sc.Owner() {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *mockPatients) RecordDiagnosis(_ context.Context, _ scope.Scope, patientID, diagnosisID uuid.UUID) error {
	m.linked[patientID] = diagnosisID
	return nil
}

type mockWorkflow struct {
	result *webhook.Result
	err    error
	intake *webhook.IntakeRequest
}

func (m *mockWorkflow) Diagnose(_ context.Context, intake *webhook.IntakeRequest) (*webhook.Result, error) {
	m.intake = intake
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func seedPatient(patients *mockPatients, sc scope.Scope) *patient.Patient {
	age := 42
	p := &patient.Patient{
		ID:             uuid.New(),
		Owner:          sc.Owner(),
		Name:           "Jane",
		Surname:        "Doe",
		Age:            &age,
		Gender:         "female",
		MedicalHistory: "asthma",
		Allergies:      []string{"penicillin"},
	}
	patients.patients[p.ID] = p
	return p
}

func sampleResult() *webhook.Result {
	confidence := 0.82
	return &webhook.Result{
		PrimaryDiagnosis:      "Acute bronchitis",
		DifferentialDiagnoses: []string{"Pneumonia"},
		RecommendedActions:    []string{"Chest X-ray"},
		Treatment:             "Rest and fluids",
		DrugSuggestions: []webhook.DrugSuggestion{
			{DrugName: "Amoxicillin", Dosage: "500mg", Duration: "7 days", Priority: 1},
		},
		SeverityLevel:   "moderate",
		ConfidenceScore: &confidence,
	}
}

func TestSubmit_PersistsFindingsAndLinksPatient(t *testing.T) {
	repo := newMockRepo()
	patients := newMockPatients()
	workflow := &mockWorkflow{result: sampleResult()}
	svc := NewService(repo, patients, workflow)

	userID := uuid.New()
	sc := scope.Individual(userID)
	p := seedPatient(patients, sc)

	d, err := svc.Submit(context.Background(), sc, &SubmitInput{
		PatientID: p.ID,
		Complaint: "persistent cough",
		Symptoms:  []string{"cough", "fatigue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.PrimaryDiagnosis != "Acute bronchitis" {
		t.Errorf("unexpected diagnosis: %s", d.PrimaryDiagnosis)
	}
	if d.Owner != sc.Owner() || d.CreatedBy != userID {
		t.Errorf("unexpected stamps: %+v", d)
	}
	if len(d.DrugSuggestions) != 1 || d.DrugSuggestions[0].Source != SourceAI {
		t.Errorf("expected AI-sourced suggestion, got %+v", d.DrugSuggestions)
	}
	if patients.linked[p.ID] != d.ID {
		t.Error("expected patient linked to latest diagnosis")
	}

	// The intake forwarded the patient record, not just the complaint.
	if workflow.intake.MedicalHistory != "asthma" || len(workflow.intake.Allergies) != 1 {
		t.Errorf("intake missing patient data: %+v", workflow.intake)
	}
}

func TestSubmit_WorkflowFailureStoresNothing(t *testing.T) {
	repo := newMockRepo()
	patients := newMockPatients()
	workflow := &mockWorkflow{err: &webhook.StatusError{Code: 502}}
	svc := NewService(repo, patients, workflow)

	sc := scope.Individual(uuid.New())
	p := seedPatient(patients, sc)

	_, err := svc.Submit(context.Background(), sc, &SubmitInput{PatientID: p.ID, Complaint: "cough"})
	if !errors.Is(err, ErrWorkflowFailed) {
		t.Fatalf("expected ErrWorkflowFailed, got %v", err)
	}
	if len(repo.diagnoses) != 0 {
		t.Error("diagnosis stored despite workflow failure")
	}
	if len(patients.linked) != 0 {
		t.Error("patient linked despite workflow failure")
	}
}

func TestSubmit_UnknownPatient(t *testing.T) {
	svc := NewService(newMockRepo(), newMockPatients(), &mockWorkflow{result: sampleResult()})
	sc := scope.Individual(uuid.New())

	_, err := svc.Submit(context.Background(), sc, &SubmitInput{PatientID: uuid.New(), Complaint: "cough"})
	if !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected patient.ErrNotFound, got %v", err)
	}
}

func TestSubmit_MissingComplaint(t *testing.T) {
	svc := NewService(newMockRepo(), newMockPatients(), &mockWorkflow{result: sampleResult()})
	sc := scope.Individual(uuid.New())

	if _, err := svc.Submit(context.Background(), sc, &SubmitInput{PatientID: uuid.New()}); err == nil {
		t.Error("expected error for missing complaint")
	}
}

func TestEdit_StampsEditor(t *testing.T) {
	repo := newMockRepo()
	patients := newMockPatients()
	svc := NewService(repo, patients, &mockWorkflow{result: sampleResult()})

	author := uuid.New()
	sc := scope.Individual(author)
	p := seedPatient(patients, sc)
	d, _ := svc.Submit(context.Background(), sc, &SubmitInput{PatientID: p.ID, Complaint: "cough"})

	edited, err := svc.Edit(context.Background(), sc, d.ID, &EditInput{
		PrimaryDiagnosis: "Chronic bronchitis",
		Treatment:        "Bronchodilators",
		EditLocation:     "ward 3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edited.PrimaryDiagnosis != "Chronic bronchitis" {
		t.Errorf("unexpected diagnosis: %s", edited.PrimaryDiagnosis)
	}
	if edited.LastEditedBy == nil || *edited.LastEditedBy != author {
		t.Error("expected editor stamp")
	}
	if edited.EditLocation != "ward 3" {
		t.Errorf("unexpected edit location: %s", edited.EditLocation)
	}
	// Intake stays as submitted.
	if edited.Complaint != "cough" {
		t.Errorf("intake changed on edit: %s", edited.Complaint)
	}
}

func TestAttachSuggestion_Manual(t *testing.T) {
	repo := newMockRepo()
	patients := newMockPatients()
	svc := NewService(repo, patients, &mockWorkflow{result: sampleResult()})

	sc := scope.Individual(uuid.New())
	p := seedPatient(patients, sc)
	d, _ := svc.Submit(context.Background(), sc, &SubmitInput{PatientID: p.ID, Complaint: "cough"})

	invID := uuid.New()
	updated, err := svc.AttachSuggestion(context.Background(), sc, d.ID, &SuggestionInput{
		DrugName: "Ibuprofen", Dosage: "400mg", InventoryID: &invID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.DrugSuggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(updated.DrugSuggestions))
	}
	manual := updated.DrugSuggestions[1]
	if manual.Source != SourceManual || manual.InventoryID == nil {
		t.Errorf("unexpected manual suggestion: %+v", manual)
	}
}

func TestCrossContextIsolation(t *testing.T) {
	repo := newMockRepo()
	patients := newMockPatients()
	svc := NewService(repo, patients, &mockWorkflow{result: sampleResult()})

	userID := uuid.New()
	individual := scope.Individual(userID)
	org := scope.Organization(userID, uuid.New())

	p := seedPatient(patients, individual)
	d, _ := svc.Submit(context.Background(), individual, &SubmitInput{PatientID: p.ID, Complaint: "cough"})

	if _, err := svc.Get(context.Background(), org, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound across partitions, got %v", err)
	}
}

func TestExport_RendersDocument(t *testing.T) {
	repo := newMockRepo()
	patients := newMockPatients()
	svc := NewService(repo, patients, &mockWorkflow{result: sampleResult()})

	sc := scope.Individual(uuid.New())
	p := seedPatient(patients, sc)
	d, _ := svc.Submit(context.Background(), sc, &SubmitInput{PatientID: p.ID, Complaint: "cough"})

	for _, format := range []export.Format{export.FormatExcel, export.FormatPDF, export.FormatWord} {
		data, err := svc.Export(context.Background(), sc, d.ID, format)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", format, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s: empty document", format)
		}
	}
}

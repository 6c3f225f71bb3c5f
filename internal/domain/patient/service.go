package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mediq/mediq/internal/domain/scope"
)

var ErrNotFound = errors.New("patient not found")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the caller-supplied patient fields. The owner is
// never part of the input; it is always stamped from the active context.
type CreateInput struct {
	Name           string   `json:"name"`
	Surname        string   `json:"surname"`
	Age            *int     `json:"age"`
	Gender         string   `json:"gender"`
	ExternalID     string   `json:"external_id"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email"`
	MedicalHistory string   `json:"medical_history"`
	Allergies      []string `json:"allergies"`
	Medications    []string `json:"medications"`
}

func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return fmt.Errorf("age must be between 0 and 150")
	}
	return nil
}

// Create stores a patient stamped with the active context's owner.
func (s *Service) Create(ctx context.Context, sc scope.Scope, in *CreateInput) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &Patient{
		Owner:          sc.Owner(),
		Name:           strings.TrimSpace(in.Name),
		Surname:        strings.TrimSpace(in.Surname),
		Age:            in.Age,
		Gender:         in.Gender,
		ExternalID:     strings.TrimSpace(in.ExternalID),
		Phone:          strings.TrimSpace(in.Phone),
		Email:          strings.TrimSpace(in.Email),
		MedicalHistory: in.MedicalHistory,
		Allergies:      in.Allergies,
		Medications:    in.Medications,
		CreatedBy:      sc.UserID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, sc scope.Scope, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.Get(ctx, sc.Owner(), id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Update replaces the editable fields of a patient in the active
// partition. The owner stamp never changes.
func (s *Service) Update(ctx context.Context, sc scope.Scope, id uuid.UUID, in *CreateInput) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Surname = strings.TrimSpace(in.Surname)
	p.Age = in.Age
	p.Gender = in.Gender
	p.ExternalID = strings.TrimSpace(in.ExternalID)
	p.Phone = strings.TrimSpace(in.Phone)
	p.Email = strings.TrimSpace(in.Email)
	p.MedicalHistory = in.MedicalHistory
	p.Allergies = in.Allergies
	p.Medications = in.Medications
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return p, nil
}

// Delete removes a patient and, through the schema's cascade, their
// diagnosis history.
func (s *Service) Delete(ctx context.Context, sc scope.Scope, id uuid.UUID) error {
	if _, err := s.Get(ctx, sc, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, sc.Owner(), id)
}

// RecordDiagnosis links the patient's most recent diagnosis.
func (s *Service) RecordDiagnosis(ctx context.Context, sc scope.Scope, patientID, diagnosisID uuid.UUID) error {
	return s.repo.SetLastDiagnosis(ctx, sc.Owner(), patientID, diagnosisID)
}

// List returns the patients of the active partition, optionally filtered
// by a case-insensitive name or external id search.
func (s *Service) List(ctx context.Context, sc scope.Scope, search string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, sc.Owner(), strings.TrimSpace(search), limit, offset)
}

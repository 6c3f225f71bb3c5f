// Package dashboard aggregates per-context statistics for the landing
// view. All figures are computed over the active partition only.
package dashboard

import (
	"context"

	"github.com/mediq/mediq/internal/domain/scope"
)

// NameCount is one labeled bucket in a distribution.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the full dashboard payload.
type Summary struct {
	PatientCount       int         `json:"patient_count"`
	DiagnosisCount     int         `json:"diagnosis_count"`
	DiagnosesThisMonth int         `json:"diagnoses_this_month"`
	DrugCount          int         `json:"drug_count"`
	LowStockCount      int         `json:"low_stock_count"`
	TopDiagnoses       []NameCount `json:"top_diagnoses"`
	GenderDistribution []NameCount `json:"gender_distribution"`
}

// Repository computes the aggregates for one owner partition.
type Repository interface {
	Summary(ctx context.Context, owner scope.Owner, lowStockThreshold, topN int) (*Summary, error)
}

type Service struct {
	repo              Repository
	lowStockThreshold int
}

const defaultTopN = 5

func NewService(repo Repository, lowStockThreshold int) *Service {
	return &Service{repo: repo, lowStockThreshold: lowStockThreshold}
}

func (s *Service) Summary(ctx context.Context, sc scope.Scope) (*Summary, error) {
	return s.repo.Summary(ctx, sc.Owner(), s.lowStockThreshold, defaultTopN)
}

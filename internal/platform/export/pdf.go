package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDF renders the report as a single-column A4 document.
func PDF(r *Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Diagnosis report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Diagnosis report")
	pdf.Ln(12)

	section := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, label)
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5, value, "", "L", false)
		pdf.Ln(3)
	}

	section("Patient", r.FullName())
	if r.Age != nil {
		section("Age", fmt.Sprintf("%d", *r.Age))
	}
	section("Gender", r.Gender)
	section("Date", r.CreatedAt.Format("2006-01-02 15:04"))
	section("Complaint", r.Complaint)
	section("Symptoms", strings.Join(r.Symptoms, ", "))
	section("Primary diagnosis", r.PrimaryDiagnosis)
	section("Differential diagnoses", strings.Join(r.DifferentialDiagnoses, "; "))
	section("Recommended actions", strings.Join(r.RecommendedActions, "; "))
	section("Treatment", r.Treatment)
	section("Severity", r.SeverityLevel)

	if len(r.DrugSuggestions) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, "Suggested medications")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 11)
		for _, d := range r.DrugSuggestions {
			line := d.Name
			if d.Dosage != "" {
				line += ", " + d.Dosage
			}
			if d.Duration != "" {
				line += ", " + d.Duration
			}
			if d.Instructions != "" {
				line += " (" + d.Instructions + ")"
			}
			pdf.MultiCell(0, 5, "- "+line, "", "L", false)
		}
		pdf.Ln(3)
	}

	section("Notes", r.AdditionalNotes)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Package export renders diagnosis reports as downloadable documents.
// Layouts are deliberately simple: a header block, the intake data, and
// the diagnostic findings, in the order clinicians read them.
package export

import "time"

// Format identifies a supported document format.
type Format string

const (
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
	FormatWord  Format = "word"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatWord:
		return "application/msword"
	}
	return "application/octet-stream"
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatExcel:
		return ".xlsx"
	case FormatPDF:
		return ".pdf"
	case FormatWord:
		return ".doc"
	}
	return ""
}

// Valid reports whether the format is one we can render.
func (f Format) Valid() bool {
	switch f {
	case FormatExcel, FormatPDF, FormatWord:
		return true
	}
	return false
}

// Report is the format-independent view of one diagnosis record.
type Report struct {
	PatientName           string
	PatientSurname        string
	Age                   *int
	Gender                string
	Complaint             string
	Symptoms              []string
	PrimaryDiagnosis      string
	DifferentialDiagnoses []string
	RecommendedActions    []string
	Treatment             string
	SeverityLevel         string
	DrugSuggestions       []ReportDrug
	AdditionalNotes       string
	CreatedAt             time.Time
}

// ReportDrug is one suggested medication line in a report.
type ReportDrug struct {
	Name         string
	Dosage       string
	Duration     string
	Instructions string
}

// FullName joins the patient name parts, tolerating blanks.
func (r *Report) FullName() string {
	switch {
	case r.PatientName != "" && r.PatientSurname != "":
		return r.PatientName + " " + r.PatientSurname
	case r.PatientName != "":
		return r.PatientName
	case r.PatientSurname != "":
		return r.PatientSurname
	}
	return "Unknown patient"
}

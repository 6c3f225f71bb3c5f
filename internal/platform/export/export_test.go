package export

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func sampleReport() *Report {
	age := 42
	return &Report{
		PatientName:           "Jane",
		PatientSurname:        "Doe",
		Age:                   &age,
		Gender:                "female",
		Complaint:             "persistent cough for two weeks",
		Symptoms:              []string{"cough", "fatigue"},
		PrimaryDiagnosis:      "Acute bronchitis",
		DifferentialDiagnoses: []string{"Pneumonia"},
		RecommendedActions:    []string{"Chest X-ray"},
		Treatment:             "Rest and fluids",
		SeverityLevel:         "moderate",
		DrugSuggestions: []ReportDrug{
			{Name: "Amoxicillin", Dosage: "500mg", Duration: "7 days"},
		},
		CreatedAt: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestExcel_ProducesWorkbook(t *testing.T) {
	data, err := Excel(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("expected zip magic bytes")
	}
}

func TestPDF_ProducesDocument(t *testing.T) {
	data, err := PDF(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("expected PDF magic bytes")
	}
}

func TestWord_ContainsFields(t *testing.T) {
	data, err := Word(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := string(data)
	for _, want := range []string{"Jane Doe", "Acute bronchitis", "Amoxicillin, 500mg, 7 days", "persistent cough"} {
		if !strings.Contains(doc, want) {
			t.Errorf("expected document to contain %q", want)
		}
	}
}

func TestWord_EscapesHTML(t *testing.T) {
	r := sampleReport()
	r.Complaint = `<script>alert("x")</script>`
	data, err := Word(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "<script>") {
		t.Error("expected complaint to be escaped")
	}
}

func TestRender_UnsupportedFormat(t *testing.T) {
	if _, err := Render(Format("csv"), sampleReport()); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormat_Metadata(t *testing.T) {
	if FormatExcel.Extension() != ".xlsx" || FormatPDF.Extension() != ".pdf" || FormatWord.Extension() != ".doc" {
		t.Error("unexpected extensions")
	}
	if !FormatPDF.Valid() || Format("csv").Valid() {
		t.Error("unexpected validity")
	}
}

func TestReport_FullName(t *testing.T) {
	r := &Report{}
	if r.FullName() != "Unknown patient" {
		t.Errorf("unexpected fallback name: %s", r.FullName())
	}
	r.PatientName = "Jane"
	if r.FullName() != "Jane" {
		t.Errorf("unexpected name: %s", r.FullName())
	}
}

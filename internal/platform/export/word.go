package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Word renders the report as an HTML document served with the msword
// content type, which Word and LibreOffice open natively. The template
// escapes all report fields.
var wordTmpl = template.Must(template.New("report").Parse(`<html>
<head><meta charset="utf-8"><title>Diagnosis report</title></head>
<body>
<h1>Diagnosis report</h1>
<table border="0" cellpadding="4">
<tr><td><b>Patient</b></td><td>{{.FullName}}</td></tr>
{{if .Age}}<tr><td><b>Age</b></td><td>{{.Age}}</td></tr>{{end}}
{{if .Gender}}<tr><td><b>Gender</b></td><td>{{.Gender}}</td></tr>{{end}}
<tr><td><b>Date</b></td><td>{{.Date}}</td></tr>
<tr><td><b>Complaint</b></td><td>{{.Complaint}}</td></tr>
{{if .Symptoms}}<tr><td><b>Symptoms</b></td><td>{{.Symptoms}}</td></tr>{{end}}
<tr><td><b>Primary diagnosis</b></td><td>{{.Primary}}</td></tr>
{{if .Differentials}}<tr><td><b>Differential diagnoses</b></td><td>{{.Differentials}}</td></tr>{{end}}
{{if .Actions}}<tr><td><b>Recommended actions</b></td><td>{{.Actions}}</td></tr>{{end}}
{{if .Treatment}}<tr><td><b>Treatment</b></td><td>{{.Treatment}}</td></tr>{{end}}
{{if .Severity}}<tr><td><b>Severity</b></td><td>{{.Severity}}</td></tr>{{end}}
</table>
{{if .Drugs}}
<h2>Suggested medications</h2>
<ul>
{{range .Drugs}}<li>{{.}}</li>
{{end}}</ul>
{{end}}
{{if .Notes}}<p><b>Notes:</b> {{.Notes}}</p>{{end}}
</body>
</html>
`))

type wordData struct {
	FullName      string
	Age           string
	Gender        string
	Date          string
	Complaint     string
	Symptoms      string
	Primary       string
	Differentials string
	Actions       string
	Treatment     string
	Severity      string
	Drugs         []string
	Notes         string
}

func Word(r *Report) ([]byte, error) {
	data := wordData{
		FullName:      r.FullName(),
		Gender:        r.Gender,
		Date:          r.CreatedAt.Format("2006-01-02 15:04"),
		Complaint:     r.Complaint,
		Symptoms:      strings.Join(r.Symptoms, ", "),
		Primary:       r.PrimaryDiagnosis,
		Differentials: strings.Join(r.DifferentialDiagnoses, "; "),
		Actions:       strings.Join(r.RecommendedActions, "; "),
		Treatment:     r.Treatment,
		Severity:      r.SeverityLevel,
		Notes:         r.AdditionalNotes,
	}
	if r.Age != nil {
		data.Age = fmt.Sprintf("%d", *r.Age)
	}
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
		data.Drugs = append(data.Drugs, line)
	}

	var buf bytes.Buffer
	if err := wordTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// Render dispatches to the renderer for the given format.
func Render(format Format, r *Report) ([]byte, error) {
	switch format {
	case FormatExcel:
		return Excel(r)
	case FormatPDF:
		return PDF(r)
	case FormatWord:
		return Word(r)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

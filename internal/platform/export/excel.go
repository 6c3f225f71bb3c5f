package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Diagnosis"

// Excel renders the report as a two-column xlsx sheet.
func Excel(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	rows := [][2]string{
		{"Patient", r.FullName()},
		{"Age", formatAge(r.Age)},
		{"Gender", r.Gender},
		{"Date", r.CreatedAt.Format("2006-01-02 15:04")},
		{"Complaint", r.Complaint},
		{"Symptoms", strings.Join(r.Symptoms, ", ")},
		{"Primary diagnosis", r.PrimaryDiagnosis},
		{"Differential diagnoses", strings.Join(r.DifferentialDiagnoses, "; ")},
		{"Recommended actions", strings.Join(r.RecommendedActions, "; ")},
		{"Treatment", r.Treatment},
		{"Severity", r.SeverityLevel},
		{"Notes", r.AdditionalNotes},
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+1)
		valueCell := fmt.Sprintf("B%d", i+1)
		if err := f.SetCellValue(sheetName, labelCell, row[0]); err != nil {
			return nil, fmt.Errorf("write cell %s: %w", labelCell, err)
		}
		if err := f.SetCellStyle(sheetName, labelCell, labelCell, headerStyle); err != nil {
			return nil, fmt.Errorf("style cell %s: %w", labelCell, err)
		}
		if err := f.SetCellValue(sheetName, valueCell, row[1]); err != nil {
			return nil, fmt.Errorf("write cell %s: %w", valueCell, err)
		}
	}

	if len(r.DrugSuggestions) > 0 {
		base := len(rows) + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", base), "Suggested medications")
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", base), fmt.Sprintf("A%d", base), headerStyle)
		for j, col := range []string{"Name", "Dosage", "Duration", "Instructions"} {
			cell, _ := excelize.CoordinatesToCellName(j+1, base+1)
			f.SetCellValue(sheetName, cell, col)
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}
		for i, d := range r.DrugSuggestions {
			for j, val := range []string{d.Name, d.Dosage, d.Duration, d.Instructions} {
				cell, _ := excelize.CoordinatesToCellName(j+1, base+2+i)
				f.SetCellValue(sheetName, cell, val)
			}
		}
	}

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "D", 48)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAge(age *int) string {
	if age == nil {
		return ""
	}
	return fmt.Sprintf("%d", *age)
}

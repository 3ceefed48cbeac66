package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

const (
	candidatesSheet = "Candidates"
	experienceSheet = "Experience"
)

// ExportCandidates writes candidates as an XLSX workbook with one summary
// row per candidate and one row per employment record.
func ExportCandidates(w io.Writer, candidates []models.Candidate, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", candidatesSheet)
	if _, err := f.NewSheet(experienceSheet); err != nil {
		return fmt.Errorf("failed to create experience sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeCandidatesSheet(f, headerStyle, candidates, now); err != nil {
		return fmt.Errorf("failed to create candidates sheet: %w", err)
	}
	if err := writeExperienceSheet(f, headerStyle, candidates); err != nil {
		return fmt.Errorf("failed to create experience sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeCandidatesSheet(f *excelize.File, headerStyle int, candidates []models.Candidate, now time.Time) error {
	headers := []interface{}{"ID", "Full Name", "Email", "Phone", "Location", "Years of Experience", "Degrees", "Skills"}
	if err := writeHeader(f, candidatesSheet, headers, headerStyle); err != nil {
		return err
	}
	f.SetColWidth(candidatesSheet, "B", "C", 28)
	f.SetColWidth(candidatesSheet, "G", "H", 40)

	for i, c := range candidates {
		var periods []models.WorkPeriodRow
		for _, we := range c.WorkExperience {
			periods = append(periods, models.WorkPeriodRow{
				CandidateID:    c.ID,
				StartDate:      we.StartDate,
				EndDate:        we.EndDate,
				EndDateInvalid: we.EndDateInvalid,
			})
		}
		years := experienceYears(periods, now)[c.ID]

		var degrees, skills []string
		for _, ed := range c.Education {
			degrees = append(degrees, ed.Degree)
		}
		for _, s := range c.Skills {
			skills = append(skills, s.Name)
		}

		row := []interface{}{
			c.ID,
			c.FullName,
			c.Email,
			deref(c.Phone),
			deref(c.Location),
			fmt.Sprintf("%.1f", years),
			strings.Join(degrees, ", "),
			strings.Join(skills, ", "),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(candidatesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeExperienceSheet(f *excelize.File, headerStyle int, candidates []models.Candidate) error {
	headers := []interface{}{"Candidate ID", "Company", "Position", "Start", "End", "Location"}
	if err := writeHeader(f, experienceSheet, headers, headerStyle); err != nil {
		return err
	}
	f.SetColWidth(experienceSheet, "B", "C", 30)

	rowNum := 2
	for _, c := range candidates {
		for _, we := range c.WorkExperience {
			end := "Present"
			switch {
			case we.EndDateInvalid:
				end = "Unknown"
			case we.EndDate != nil:
				end = we.EndDate.Format("2006-01-02")
			}
			start := ""
			if we.StartDate != nil {
				start = we.StartDate.Format("2006-01-02")
			}
			row := []interface{}{c.ID, we.Company, we.Position, start, end, deref(we.Location)}
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetSheetRow(experienceSheet, cell, &row); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

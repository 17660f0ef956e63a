package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"alfredoptarigan/talent-intake/internal/models"
)

const (
	candidatesSheet = "Candidates"
	shortlistSheet  = "Shortlist"
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// fitBands colour shortlist rows by score, best band first.
var fitBands = []struct {
	min   int
	color string
}{
	{80, "C6EFCE"},
	{60, "FFEB9C"},
	{40, "FFC7CE"},
	{0, "FF9999"},
}

// WriteCandidates writes the candidate pool as an xlsx workbook.
func WriteCandidates(w io.Writer, candidates []models.Candidate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		return err
	}

	headers := []string{"Name", "Email", "Phone", "Age", "Current Role", "Current Company", "Skills", "Salary Band", "Status", "Added"}
	widths := []float64{25, 30, 18, 6, 25, 25, 50, 18, 10, 18}
	if err := writeHeader(f, candidatesSheet, headers, widths); err != nil {
		return fmt.Errorf("failed to write candidate header: %w", err)
	}

	for i, c := range candidates {
		row := i + 2
		values := []any{
			c.FullName,
			c.Email,
			c.Phone,
			ageCell(c.Age),
			c.CurrentRole,
			c.CurrentCompany,
			strings.Join(c.Skills, ", "),
			c.SalaryBand,
			string(c.Status),
			c.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, candidatesSheet, row, values); err != nil {
			return err
		}
	}

	finishSheet(f, candidatesSheet, len(headers), len(candidates))

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteShortlist writes a job's applications, in the given order, with rows
// banded by fit score. Applications must have their candidate loaded.
func WriteShortlist(w io.Writer, job models.Job, apps []models.Application) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", shortlistSheet); err != nil {
		return err
	}

	headers := []string{"Rank", "Candidate", "Email", "Fit Score", "Stage", "Reasoning"}
	widths := []float64{8, 25, 30, 10, 12, 80}
	if err := writeHeader(f, shortlistSheet, headers, widths); err != nil {
		return fmt.Errorf("failed to write shortlist header: %w", err)
	}

	bandStyles := make([]int, len(fitBands))
	for i, band := range fitBands {
		style, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{band.color}, Pattern: 1},
			Border:    thinBorder,
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		})
		if err != nil {
			return err
		}
		bandStyles[i] = style
	}

	for i, app := range apps {
		row := i + 2

		var name, email string
		if app.Candidate != nil {
			name = app.Candidate.FullName
			email = app.Candidate.Email
		}

		var score any = ""
		var reasoning string
		if app.FitScore != nil {
			score = *app.FitScore
		}
		if app.FitReasoning != nil {
			reasoning = *app.FitReasoning
		}

		if err := writeRow(f, shortlistSheet, row, []any{i + 1, name, email, score, string(app.Status), reasoning}); err != nil {
			return err
		}

		if app.FitScore != nil {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(headers), row)
			f.SetCellStyle(shortlistSheet, first, last, bandStyles[bandFor(*app.FitScore)])
		}
	}

	finishSheet(f, shortlistSheet, len(headers), len(apps))
	f.SetDocProps(&excelize.DocProperties{Title: job.Title + " shortlist"})

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func bandFor(score int) int {
	for i, band := range fitBands {
		if score >= band.min {
			return i
		}
	}
	return len(fitBands) - 1
}

func ageCell(age int) any {
	if age <= 0 {
		return ""
	}
	return age
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(col + 1)
		f.SetColWidth(sheet, colName, colName, widths[col])
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", cell, err)
		}
	}
	return nil
}

// finishSheet freezes the header and enables filtering over the data.
func finishSheet(f *excelize.File, sheet string, cols, rows int) {
	if rows > 0 {
		last, _ := excelize.CoordinatesToCellName(cols, rows+1)
		f.AutoFilter(sheet, "A1:"+last, []excelize.AutoFilterOptions{})
	}

	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

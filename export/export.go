// Package export renders the schedule as downloadable documents.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"classtrack/models"
)

const (
	pdfMargin    = 20.0
	pdfPageLimit = 270.0 // y offset (mm) after which a new page starts
)

// WritePDF writes a printable list of subjects and exams.
func WritePDF(w io.Writer, subjects []models.Subject, exams []models.Exam) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Student Schedule", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 16)
	pdf.Text(pdfMargin, 20, "Student Schedule")
	y := 40.0

	section := func(title string) {
		pdf.SetFont("Helvetica", "", 16)
		pdf.Text(pdfMargin, y, title)
		y += 10
		pdf.SetFont("Helvetica", "", 12)
	}
	lines := func(heading string, details ...string) {
		pdf.Text(pdfMargin, y, heading)
		y += 5
		for _, d := range details {
			pdf.Text(pdfMargin, y, "   "+d)
			y += 5
		}
		y += 5
		if y > pdfPageLimit {
			pdf.AddPage()
			y = 20
		}
	}

	section("Subjects")
	for i, s := range subjects {
		lines(fmt.Sprintf("%d. %s", i+1, s.Name),
			"Teacher: "+s.Teacher,
			"Days: "+strings.Join(s.Days, ", "),
			"Time: "+s.Time)
	}

	y += 10
	section("Exams")
	for i, e := range exams {
		lines(fmt.Sprintf("%d. %s", i+1, e.Name),
			"Date: "+e.Date,
			"Time: "+e.Time,
			"Location: "+e.Location)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a Subjects sheet and an Exams sheet.
// The Subjects sheet uses the same columns the spreadsheet import reads.
func WriteXLSX(w io.Writer, subjects []models.Subject, exams []models.Exam) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), "Subjects"); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet("Exams"); err != nil {
		return fmt.Errorf("failed to create exams sheet: %w", err)
	}

	subjectRows := [][]any{{"Name", "Teacher", "Day", "Time"}}
	for _, s := range subjects {
		for _, day := range s.Days {
			subjectRows = append(subjectRows, []any{s.Name, s.Teacher, day, s.Time})
		}
	}
	if err := writeRows(f, "Subjects", subjectRows); err != nil {
		return err
	}

	examRows := [][]any{{"Name", "Date", "Time", "Location"}}
	for _, e := range exams {
		examRows = append(examRows, []any{e.Name, e.Date, e.Time, e.Location})
	}
	if err := writeRows(f, "Exams", examRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

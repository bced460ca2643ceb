package timetable

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"classtrack/models"
)

// FromSpreadsheet reads subjects from the first sheet of an xlsx file.
// Row 1 is a header; columns are Name, Teacher, Day, Time.
func FromSpreadsheet(r io.Reader, logger *zap.Logger) ([]models.Subject, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Error closing excel file", zap.Error(err))
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	var subjects []models.Subject
	for i, row := range rows {
		if i == 0 {
			continue // header
		}

		name := cell(row, 0)
		teacher := cell(row, 1)
		day := strings.ToLower(cell(row, 2))
		clock := cell(row, 3)

		if name == "" || !models.IsWeekday(day) || !models.ValidClock(clock) {
			logger.Debug("Skipping timetable row",
				zap.Int("row", i+1),
				zap.String("name", name),
				zap.String("day", day),
				zap.String("time", clock))
			continue
		}

		subjects = append(subjects, models.Subject{
			ID:      uuid.NewString(),
			Name:    name,
			Teacher: teacher,
			Days:    []string{day},
			Time:    clock,
		})
	}

	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	logger.Info("Read timetable spreadsheet", zap.String("sheet", sheetName), zap.Int("subjects", len(subjects)))
	return subjects, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// Package timetable turns imported timetables into candidate subject records.
package timetable

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"classtrack/models"
)

// PlaceholderTeacher is set on every subject read from OCR text.
const PlaceholderTeacher = "Unknown"

// ErrNoSubjects is returned when nothing in the input matched.
var ErrNoSubjects = errors.New("no subjects could be extracted")

// weekday, start, end, location
var slotPattern = regexp.MustCompile(`(?i)(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s+(\d{2}:\d{2})-(\d{2}:\d{2})\s+(.+)`)

// Slot is one matched timetable line.
type Slot struct {
	Day      string
	Start    string
	End      string
	Location string
}

// MatchLine parses a single line, reporting false when it is not a slot.
func MatchLine(line string) (Slot, bool) {
	m := slotPattern.FindStringSubmatch(line)
	if m == nil {
		return Slot{}, false
	}
	return Slot{
		Day:      strings.ToLower(m[1]),
		Start:    m[2],
		End:      m[3],
		Location: strings.TrimSpace(m[4]),
	}, true
}

// Extract converts raw OCR text into subject candidates. The second non-blank
// line is taken as the subject name for every matched slot.
func Extract(text string) ([]models.Subject, error) {
	lines := nonBlankLines(text)

	var name string
	if len(lines) > 1 {
		name = strings.TrimSpace(lines[1])
	}

	var subjects []models.Subject
	for _, line := range lines {
		slot, ok := MatchLine(line)
		if !ok {
			continue
		}
		subjects = append(subjects, models.Subject{
			ID:      uuid.NewString(),
			Name:    name,
			Teacher: PlaceholderTeacher,
			Days:    []string{slot.Day},
			Time:    slot.Start,
		})
	}

	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	return subjects, nil
}

func nonBlankLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

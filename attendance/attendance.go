// Package attendance holds the per-subject attendance bookkeeping.
package attendance

import (
	"math"

	"classtrack/models"
)

const (
	// TotalClasses is the fixed number of classes per subject.
	TotalClasses = 42
	// Threshold is the minimum attendance ratio.
	Threshold = 0.75
)

// NewRecord returns the default record for a subject with no confirmations.
func NewRecord() models.AttendanceRecord {
	return models.AttendanceRecord{Attended: 0, Total: TotalClasses}
}

// Mark applies one confirmation. An attended class increments the counter,
// capped at the total; a missed class leaves it untouched.
func Mark(rec models.AttendanceRecord, attended bool) models.AttendanceRecord {
	rec.Total = TotalClasses
	if attended {
		rec.Attended = min(rec.Attended+1, rec.Total)
	}
	rec.Attended = clamp(rec.Attended, rec.Total)
	return rec
}

// Set overwrites the attended counter, clamped to [0, total].
func Set(rec models.AttendanceRecord, attended int) models.AttendanceRecord {
	rec.Total = TotalClasses
	rec.Attended = clamp(attended, rec.Total)
	return rec
}

// Percent is the rounded attended share of the total, 0 when total is 0.
func Percent(rec models.AttendanceRecord) int {
	if rec.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(rec.Attended) / float64(rec.Total) * 100))
}

// Remaining is how many more classes are needed to reach the threshold.
func Remaining(rec models.AttendanceRecord) int {
	needed := int(math.Ceil(Threshold * float64(rec.Total)))
	return max(0, needed-rec.Attended)
}

// Summarize builds the derived view of one subject.
func Summarize(name string, rec models.AttendanceRecord) models.AttendanceSummary {
	return models.AttendanceSummary{
		Subject:   name,
		Attended:  rec.Attended,
		Total:     rec.Total,
		Percent:   Percent(rec),
		Remaining: Remaining(rec),
	}
}

func clamp(v, total int) int {
	return max(0, min(v, total))
}

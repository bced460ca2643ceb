package models

import (
	"slices"
	"time"
)

// Weekdays in display order, lowercase as stored on subjects.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// IsWeekday reports whether day is one of Weekdays.
func IsWeekday(day string) bool {
	return slices.Contains(Weekdays, day)
}

// ValidClock reports whether s is a 24h HH:MM time.
func ValidClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil && len(s) == 5
}

// MaxSnapshotAge is how long a persisted snapshot stays restorable (6 x 30 days).
const MaxSnapshotAge = 6 * 30 * 24 * time.Hour

// Subject represents one weekly class slot
type Subject struct {
	ID      string   `json:"id"`      // Unique record ID
	Name    string   `json:"name"`    // Subject name, shared by all slots of the subject
	Teacher string   `json:"teacher"` // Teacher or location
	Days    []string `json:"days"`    // Lowercase weekday names
	Time    string   `json:"time"`    // Start time, HH:MM
}

// Exam represents a scheduled exam
type Exam struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // HH:MM
	Location string `json:"location"`
}

// AttendanceRecord counts attended classes for one subject name
type AttendanceRecord struct {
	Attended int `json:"attended"`
	Total    int `json:"total"`
}

// Snapshot is the persisted application state
type Snapshot struct {
	Subjects   []Subject                   `json:"subjects"`
	Exams      []Exam                      `json:"exams"`
	Attendance map[string]AttendanceRecord `json:"attendance"`
	Timestamp  int64                       `json:"timestamp"` // Unix milliseconds
}

// Expired reports whether the snapshot is too old to restore at now.
func (s Snapshot) Expired(now time.Time) bool {
	saved := time.UnixMilli(s.Timestamp)
	return now.Sub(saved) >= MaxSnapshotAge
}

// DaySchedule lists the subjects of one weekday, ordered by time
type DaySchedule struct {
	Day      string    `json:"day"`
	Subjects []Subject `json:"subjects"`
}

// AttendanceSummary is the derived attendance view of one subject name
type AttendanceSummary struct {
	Subject   string `json:"subject"`
	Attended  int    `json:"attended"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Remaining int    `json:"remainingFor75"`
}

// Prompt is a pending "did you attend?" question raised before a class
type Prompt struct {
	Key         string    `json:"key"`
	SubjectID   string    `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	Time        string    `json:"time"`
	RaisedAt    time.Time `json:"raisedAt"`
}

// Package schedule keeps the in-memory subjects, exams and attendance and
// mirrors them to a snapshot store after every change.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classtrack/attendance"
	"classtrack/models"
)

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrExamNotFound    = errors.New("exam not found")
	ErrInvalid         = errors.New("invalid input")
)

// Fallbacks for imported subjects with missing fields.
const (
	fallbackName    = "Unknown Name"
	fallbackTeacher = "Unknown Teacher"
	fallbackTime    = "00:00"
)

// SnapshotStore persists the whole state as one blob.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap models.Snapshot) error
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// NewSubject is the input for adding a subject on one or more days.
type NewSubject struct {
	Name    string            `json:"name"`
	Teacher string            `json:"teacher"`
	Days    []string          `json:"days"`
	Times   map[string]string `json:"times"` // weekday -> HH:MM
}

// Store holds the schedule state.
type Store struct {
	mu         sync.RWMutex
	subjects   []models.Subject
	exams      []models.Exam
	attendance map[string]models.AttendanceRecord

	persist SnapshotStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore creates an empty store. persist may be nil for a memory-only store.
func NewStore(persist SnapshotStore, logger *zap.Logger) *Store {
	return &Store{
		attendance: make(map[string]models.AttendanceRecord),
		persist:    persist,
		logger:     logger,
		now:        time.Now,
	}
}

// Load restores the persisted snapshot. Failures are logged and leave the
// store empty.
func (s *Store) Load(ctx context.Context) {
	if s.persist == nil {
		return
	}
	snap, err := s.persist.LoadSnapshot(ctx)
	if err != nil {
		s.logger.Error("Error loading data", zap.Error(err))
		return
	}
	if snap == nil {
		s.logger.Info("No saved data found")
		return
	}
	if !s.Restore(*snap) {
		s.logger.Info("Saved data expired, starting empty",
			zap.Time("savedAt", time.UnixMilli(snap.Timestamp)))
	}
}

// Restore replaces the state with snap unless it has expired.
func (s *Store) Restore(snap models.Snapshot) bool {
	if snap.Expired(s.now()) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = cloneSubjects(snap.Subjects)
	s.exams = slices.Clone(snap.Exams)
	s.attendance = make(map[string]models.AttendanceRecord, len(snap.Attendance))
	for name, rec := range snap.Attendance {
		s.attendance[name] = rec
	}
	s.logger.Info("Restored saved data",
		zap.Int("subjects", len(s.subjects)),
		zap.Int("exams", len(s.exams)))
	return true
}

// Snapshot returns a copy of the current state stamped with the current time.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() models.Snapshot {
	att := make(map[string]models.AttendanceRecord, len(s.attendance))
	for name, rec := range s.attendance {
		att[name] = rec
	}
	return models.Snapshot{
		Subjects:   cloneSubjects(s.subjects),
		Exams:      slices.Clone(s.exams),
		Attendance: att,
		Timestamp:  s.now().UnixMilli(),
	}
}

// save mirrors the state; errors are logged only. Callers hold s.mu.
func (s *Store) save() {
	if s.persist == nil {
		return
	}
	snap := s.snapshotLocked()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.persist.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Warn("Failed to save data", zap.Error(err))
	}
}

// --- Subjects ---

// AddSubject stores one record per selected day.
func (s *Store) AddSubject(in NewSubject) ([]models.Subject, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: subject name is required", ErrInvalid)
	}
	if len(in.Days) == 0 {
		return nil, fmt.Errorf("%w: at least one day is required", ErrInvalid)
	}
	for _, day := range in.Days {
		if !models.IsWeekday(day) {
			return nil, fmt.Errorf("%w: unknown day %q", ErrInvalid, day)
		}
		if t := in.Times[day]; t != "" && !models.ValidClock(t) {
			return nil, fmt.Errorf("%w: time for %s must be HH:MM", ErrInvalid, day)
		}
	}

	added := make([]models.Subject, 0, len(in.Days))
	for _, day := range in.Days {
		added = append(added, models.Subject{
			ID:      uuid.NewString(),
			Name:    name,
			Teacher: strings.TrimSpace(in.Teacher),
			Days:    []string{day},
			Time:    in.Times[day],
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, added...)
	s.save()
	return cloneSubjects(added), nil
}

// UpdateSubject replaces the editable fields of one record.
func (s *Store) UpdateSubject(id string, upd models.Subject) (models.Subject, error) {
	if err := validateSubject(upd); err != nil {
		return models.Subject{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.subjectIndex(id)
	if i < 0 {
		return models.Subject{}, ErrSubjectNotFound
	}
	upd.ID = id
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Days = slices.Clone(upd.Days)
	s.subjects[i] = upd
	s.save()
	return cloneSubject(upd), nil
}

// RemoveSubject deletes one record.
func (s *Store) RemoveSubject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.subjectIndex(id)
	if i < 0 {
		return ErrSubjectNotFound
	}
	s.subjects = slices.Delete(s.subjects, i, i+1)
	s.save()
	return nil
}

// Subject returns one record by id.
func (s *Store) Subject(id string) (models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.subjectIndex(id)
	if i < 0 {
		return models.Subject{}, ErrSubjectNotFound
	}
	return cloneSubject(s.subjects[i]), nil
}

// ListSubjects returns all records in insertion order.
func (s *Store) ListSubjects() []models.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSubjects(s.subjects)
}

// ImportSubjects appends extracted candidates, filling missing fields.
func (s *Store) ImportSubjects(candidates []models.Subject) []models.Subject {
	added := make([]models.Subject, 0, len(candidates))
	for _, c := range candidates {
		sub := models.Subject{
			ID:      uuid.NewString(),
			Name:    orDefault(c.Name, fallbackName),
			Teacher: orDefault(c.Teacher, fallbackTeacher),
			Time:    orDefault(c.Time, fallbackTime),
			Days:    slices.Clone(c.Days),
		}
		if sub.Days == nil {
			sub.Days = []string{}
		}
		added = append(added, sub)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, added...)
	s.save()
	return cloneSubjects(added)
}

// DailySchedule groups subjects per weekday sorted by time, skipping empty days.
func (s *Store) DailySchedule() []models.DaySchedule {
	subjects := s.ListSubjects()
	sort.SliceStable(subjects, func(i, j int) bool {
		return subjects[i].Time < subjects[j].Time
	})

	var out []models.DaySchedule
	for _, day := range models.Weekdays {
		var daySubjects []models.Subject
		for _, sub := range subjects {
			if slices.Contains(sub.Days, day) {
				daySubjects = append(daySubjects, sub)
			}
		}
		if len(daySubjects) > 0 {
			out = append(out, models.DaySchedule{Day: day, Subjects: daySubjects})
		}
	}
	return out
}

// SubjectsOn returns the subjects held on the given weekday.
func (s *Store) SubjectsOn(day string) []models.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Subject
	for _, sub := range s.subjects {
		if slices.Contains(sub.Days, day) {
			out = append(out, cloneSubject(sub))
		}
	}
	return out
}

// --- Exams ---

// AddExam stores a new exam.
func (s *Store) AddExam(e models.Exam) (models.Exam, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return models.Exam{}, fmt.Errorf("%w: exam name is required", ErrInvalid)
	}
	if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
		return models.Exam{}, fmt.Errorf("%w: exam date must be YYYY-MM-DD", ErrInvalid)
	}
	if e.Time != "" && !models.ValidClock(e.Time) {
		return models.Exam{}, fmt.Errorf("%w: exam time must be HH:MM", ErrInvalid)
	}
	e.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams = append(s.exams, e)
	s.save()
	return e, nil
}

// RemoveExam deletes one exam.
func (s *Store) RemoveExam(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.exams, func(e models.Exam) bool { return e.ID == id })
	if i < 0 {
		return ErrExamNotFound
	}
	s.exams = slices.Delete(s.exams, i, i+1)
	s.save()
	return nil
}

// ListExams returns all exams in insertion order.
func (s *Store) ListExams() []models.Exam {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.exams)
}

// --- Attendance ---

// MarkAttendance records a confirmation for the subject with the given id.
// Attendance is kept per subject name, so all slots of a subject share it.
func (s *Store) MarkAttendance(subjectID string, attended bool) (models.AttendanceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.subjectIndex(subjectID)
	if i < 0 {
		return models.AttendanceSummary{}, ErrSubjectNotFound
	}
	name := s.subjects[i].Name
	rec := attendance.Mark(s.recordLocked(name), attended)
	s.attendance[name] = rec
	s.save()
	return attendance.Summarize(name, rec), nil
}

// SetAttended overwrites the attended count of a subject name.
func (s *Store) SetAttended(name string, attended int) (models.AttendanceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.ContainsFunc(s.subjects, func(sub models.Subject) bool { return sub.Name == name }) {
		return models.AttendanceSummary{}, ErrSubjectNotFound
	}
	rec := attendance.Set(s.recordLocked(name), attended)
	s.attendance[name] = rec
	s.save()
	return attendance.Summarize(name, rec), nil
}

// AttendanceSummary lists one row per distinct subject name.
func (s *Store) AttendanceSummary() []models.AttendanceSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []models.AttendanceSummary
	for _, sub := range s.subjects {
		if seen[sub.Name] {
			continue
		}
		seen[sub.Name] = true
		out = append(out, attendance.Summarize(sub.Name, s.recordLocked(sub.Name)))
	}
	return out
}

func (s *Store) recordLocked(name string) models.AttendanceRecord {
	if rec, ok := s.attendance[name]; ok {
		return rec
	}
	return attendance.NewRecord()
}

func (s *Store) subjectIndex(id string) int {
	return slices.IndexFunc(s.subjects, func(sub models.Subject) bool { return sub.ID == id })
}

func validateSubject(sub models.Subject) error {
	if strings.TrimSpace(sub.Name) == "" {
		return fmt.Errorf("%w: subject name is required", ErrInvalid)
	}
	for _, day := range sub.Days {
		if !models.IsWeekday(day) {
			return fmt.Errorf("%w: unknown day %q", ErrInvalid, day)
		}
	}
	if sub.Time != "" && !models.ValidClock(sub.Time) {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalid)
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func cloneSubject(sub models.Subject) models.Subject {
	sub.Days = slices.Clone(sub.Days)
	return sub
}

func cloneSubjects(subs []models.Subject) []models.Subject {
	if subs == nil {
		return nil
	}
	out := make([]models.Subject, len(subs))
	for i, sub := range subs {
		out[i] = cloneSubject(sub)
	}
	return out
}

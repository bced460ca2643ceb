package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classtrack/attendance"
	"classtrack/models"
)

type memorySnapshots struct {
	saved   []models.Snapshot
	load    *models.Snapshot
	loadErr error
	saveErr error
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, snap models.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memorySnapshots) LoadSnapshot(context.Context) (*models.Snapshot, error) {
	return m.load, m.loadErr
}

func (m *memorySnapshots) last() models.Snapshot {
	return m.saved[len(m.saved)-1]
}

var fixedNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *memorySnapshots) {
	t.Helper()
	mem := &memorySnapshots{}
	s := NewStore(mem, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s, mem
}

func addPhysics(t *testing.T, s *Store) []models.Subject {
	t.Helper()
	added, err := s.AddSubject(NewSubject{
		Name:    "Physics",
		Teacher: "Room 4",
		Days:    []string{"monday", "wednesday", "friday"},
		Times:   map[string]string{"monday": "09:00", "wednesday": "11:00"},
	})
	require.NoError(t, err)
	return added
}

func TestAddSubject_OneRecordPerDay(t *testing.T) {
	s, mem := newTestStore(t)

	added := addPhysics(t, s)
	require.Len(t, added, 3)
	for _, sub := range added {
		assert.Equal(t, "Physics", sub.Name)
		assert.Len(t, sub.Days, 1)
	}
	assert.Equal(t, "09:00", added[0].Time)
	assert.Equal(t, "11:00", added[1].Time)
	assert.Equal(t, "", added[2].Time)

	require.Len(t, mem.saved, 1)
	assert.Len(t, mem.last().Subjects, 3)
	assert.Equal(t, fixedNow.UnixMilli(), mem.last().Timestamp)
}

func TestAddSubject_Invalid(t *testing.T) {
	s, mem := newTestStore(t)

	cases := []NewSubject{
		{Name: " ", Days: []string{"monday"}},
		{Name: "Maths"},
		{Name: "Maths", Days: []string{"someday"}},
		{Name: "Maths", Days: []string{"monday"}, Times: map[string]string{"monday": "9am"}},
	}
	for _, in := range cases {
		_, err := s.AddSubject(in)
		assert.ErrorIs(t, err, ErrInvalid, "input=%+v", in)
	}
	assert.Empty(t, s.ListSubjects())
	assert.Empty(t, mem.saved)
}

func TestUpdateAndRemoveSubject(t *testing.T) {
	s, _ := newTestStore(t)
	added := addPhysics(t, s)

	upd, err := s.UpdateSubject(added[0].ID, models.Subject{Name: "Applied Physics", Teacher: "Lab 1", Days: []string{"tuesday"}, Time: "08:30"})
	require.NoError(t, err)
	assert.Equal(t, added[0].ID, upd.ID)

	got, err := s.Subject(added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Applied Physics", got.Name)
	assert.Equal(t, []string{"tuesday"}, got.Days)

	_, err = s.UpdateSubject("missing", models.Subject{Name: "X"})
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	require.NoError(t, s.RemoveSubject(added[1].ID))
	assert.Len(t, s.ListSubjects(), 2)
	assert.ErrorIs(t, s.RemoveSubject(added[1].ID), ErrSubjectNotFound)
}

func TestListSubjects_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	addPhysics(t, s)

	list := s.ListSubjects()
	list[0].Days[0] = "sunday"
	list[0].Name = "changed"

	again := s.ListSubjects()
	assert.Equal(t, "monday", again[0].Days[0])
	assert.Equal(t, "Physics", again[0].Name)
}

func TestImportSubjects_Fallbacks(t *testing.T) {
	s, mem := newTestStore(t)

	added := s.ImportSubjects([]models.Subject{
		{ID: "ocr-1", Name: "Chemistry", Teacher: "Unknown", Days: []string{"monday"}, Time: "10:00"},
		{},
	})
	require.Len(t, added, 2)
	assert.NotEqual(t, "ocr-1", added[0].ID)
	assert.Equal(t, "Chemistry", added[0].Name)
	assert.Equal(t, models.Subject{ID: added[1].ID, Name: "Unknown Name", Teacher: "Unknown Teacher", Time: "00:00", Days: []string{}}, added[1])
	assert.Len(t, mem.last().Subjects, 2)
}

func TestDailySchedule(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddSubject(NewSubject{Name: "Maths", Days: []string{"monday"}, Times: map[string]string{"monday": "13:00"}})
	require.NoError(t, err)
	_, err = s.AddSubject(NewSubject{Name: "Biology", Days: []string{"monday", "thursday"}, Times: map[string]string{"monday": "08:00", "thursday": "10:00"}})
	require.NoError(t, err)

	days := s.DailySchedule()
	require.Len(t, days, 2)
	assert.Equal(t, "monday", days[0].Day)
	require.Len(t, days[0].Subjects, 2)
	assert.Equal(t, "Biology", days[0].Subjects[0].Name)
	assert.Equal(t, "Maths", days[0].Subjects[1].Name)
	assert.Equal(t, "thursday", days[1].Day)

	assert.Len(t, s.SubjectsOn("monday"), 2)
	assert.Empty(t, s.SubjectsOn("sunday"))
}

func TestExams(t *testing.T) {
	s, _ := newTestStore(t)

	exam, err := s.AddExam(models.Exam{Name: "Physics final", Date: "2026-12-01", Time: "10:00", Location: "Hall"})
	require.NoError(t, err)
	assert.NotEmpty(t, exam.ID)
	assert.Len(t, s.ListExams(), 1)

	_, err = s.AddExam(models.Exam{Name: "", Date: "2026-12-01"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = s.AddExam(models.Exam{Name: "Maths", Date: "01/12/2026"})
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, s.RemoveExam(exam.ID))
	assert.Empty(t, s.ListExams())
	assert.ErrorIs(t, s.RemoveExam(exam.ID), ErrExamNotFound)
}

func TestMarkAttendance(t *testing.T) {
	s, mem := newTestStore(t)
	added := addPhysics(t, s)

	sum, err := s.MarkAttendance(added[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Attended)

	// another slot of the same subject shares the record
	sum, err = s.MarkAttendance(added[2].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Attended)

	sum, err = s.MarkAttendance(added[1].ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Attended)
	assert.Equal(t, attendance.TotalClasses, sum.Total)

	assert.Equal(t, models.AttendanceRecord{Attended: 2, Total: 42}, mem.last().Attendance["Physics"])

	_, err = s.MarkAttendance("missing", true)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestMarkAttendance_CappedAtTotal(t *testing.T) {
	s, _ := newTestStore(t)
	added := addPhysics(t, s)

	var sum models.AttendanceSummary
	for i := 0; i < 50; i++ {
		var err error
		sum, err = s.MarkAttendance(added[0].ID, true)
		require.NoError(t, err)
		assert.LessOrEqual(t, sum.Attended, sum.Total)
	}
	assert.Equal(t, 42, sum.Attended)
	assert.Equal(t, 100, sum.Percent)
	assert.Equal(t, 0, sum.Remaining)
}

func TestSetAttendedAndSummary(t *testing.T) {
	s, _ := newTestStore(t)
	addPhysics(t, s)
	_, err := s.AddSubject(NewSubject{Name: "Maths", Days: []string{"tuesday"}})
	require.NoError(t, err)

	sum, err := s.SetAttended("Physics", 99)
	require.NoError(t, err)
	assert.Equal(t, 42, sum.Attended)

	sum, err = s.SetAttended("Physics", 30)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Remaining)

	_, err = s.SetAttended("History", 3)
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	rows := s.AttendanceSummary()
	require.Len(t, rows, 2)
	assert.Equal(t, "Physics", rows[0].Subject)
	assert.Equal(t, 30, rows[0].Attended)
	assert.Equal(t, models.AttendanceSummary{Subject: "Maths", Attended: 0, Total: 42, Percent: 0, Remaining: 32}, rows[1])
}

func TestLoad(t *testing.T) {
	saved := models.Snapshot{
		Subjects:   []models.Subject{{ID: "1", Name: "Physics", Days: []string{"monday"}, Time: "09:00"}},
		Exams:      []models.Exam{{ID: "e", Name: "Final", Date: "2026-12-01"}},
		Attendance: map[string]models.AttendanceRecord{"Physics": {Attended: 7, Total: 42}},
	}

	t.Run("recent snapshot restored", func(t *testing.T) {
		s, mem := newTestStore(t)
		snap := saved
		snap.Timestamp = fixedNow.Add(-30 * 24 * time.Hour).UnixMilli()
		mem.load = &snap

		s.Load(context.Background())
		assert.Len(t, s.ListSubjects(), 1)
		assert.Len(t, s.ListExams(), 1)
		assert.Equal(t, 7, s.AttendanceSummary()[0].Attended)
	})

	t.Run("snapshot older than six months discarded", func(t *testing.T) {
		s, mem := newTestStore(t)
		snap := saved
		snap.Timestamp = fixedNow.Add(-models.MaxSnapshotAge - time.Minute).UnixMilli()
		mem.load = &snap

		s.Load(context.Background())
		assert.Empty(t, s.ListSubjects())
		assert.Empty(t, s.ListExams())
	})

	t.Run("snapshot exactly six months old discarded", func(t *testing.T) {
		s, mem := newTestStore(t)
		snap := saved
		snap.Timestamp = fixedNow.Add(-models.MaxSnapshotAge).UnixMilli()
		mem.load = &snap

		s.Load(context.Background())
		assert.Empty(t, s.ListSubjects())
		assert.Empty(t, s.ListExams())
	})

	t.Run("load failure treated as no data", func(t *testing.T) {
		s, mem := newTestStore(t)
		mem.loadErr = errors.New("connection refused")

		s.Load(context.Background())
		assert.Empty(t, s.ListSubjects())
	})

	t.Run("nothing saved", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.Load(context.Background())
		assert.Empty(t, s.ListSubjects())
	})
}

func TestSaveFailureDoesNotFailMutation(t *testing.T) {
	s, mem := newTestStore(t)
	mem.saveErr = errors.New("redis down")

	added := addPhysics(t, s)
	assert.Len(t, added, 3)
	assert.Len(t, s.ListSubjects(), 3)
}

func TestMemoryOnlyStore(t *testing.T) {
	s := NewStore(nil, zap.NewNop())
	s.Load(context.Background())
	_, err := s.AddSubject(NewSubject{Name: "Art", Days: []string{"friday"}})
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Subjects, 1)
}

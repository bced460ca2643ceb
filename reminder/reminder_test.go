package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classtrack/models"
)

type staticSource map[string][]models.Subject

func (s staticSource) SubjectsOn(day string) []models.Subject { return s[day] }

var physics = models.Subject{ID: "p1", Name: "Physics", Days: []string{"thursday"}, Time: "09:00"}

// 2026-10-15 is a Thursday.
func at(h, m, sec int) time.Time {
	return time.Date(2026, 10, 15, h, m, sec, 0, time.Local)
}

func TestCheck_RaisesOneMinuteBefore(t *testing.T) {
	s := NewScheduler(staticSource{"thursday": {physics}}, zap.NewNop())

	assert.Empty(t, s.Check(at(8, 58, 30)))

	raised := s.Check(at(8, 59, 10))
	require.Len(t, raised, 1)
	assert.Equal(t, "Physics|2026-10-15|09:00", raised[0].Key)
	assert.Equal(t, "p1", raised[0].SubjectID)

	// second tick in the same minute
	assert.Empty(t, s.Check(at(8, 59, 40)))
	assert.Len(t, s.Pending(), 1)

	assert.Empty(t, s.Check(at(9, 0, 0)))
}

func TestCheck_IgnoresOtherDaysAndBadTimes(t *testing.T) {
	src := staticSource{
		"friday":   {physics},
		"thursday": {{ID: "x", Name: "Lab", Time: ""}},
	}
	s := NewScheduler(src, zap.NewNop())
	assert.Empty(t, s.Check(at(8, 59, 0)))
}

func TestCheck_NextDayPromptsAgain(t *testing.T) {
	src := staticSource{"thursday": {physics}, "friday": {physics}}
	s := NewScheduler(src, zap.NewNop())

	require.Len(t, s.Check(at(8, 59, 0)), 1)
	require.Len(t, s.Check(at(8, 59, 0).AddDate(0, 0, 1)), 1)
}

func TestCheck_NewDayDropsStalePrompts(t *testing.T) {
	src := staticSource{"thursday": {physics}, "friday": {physics}}
	s := NewScheduler(src, zap.NewNop())

	require.Len(t, s.Check(at(8, 59, 0)), 1)

	// nothing due yet on Friday, but Thursday's prompt is gone
	assert.Empty(t, s.Check(at(7, 0, 0).AddDate(0, 0, 1)))
	assert.Empty(t, s.Pending())

	require.Len(t, s.Check(at(8, 59, 0).AddDate(0, 0, 1)), 1)
	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Physics|2026-10-16|09:00", pending[0].Key)
}

func TestAnswer(t *testing.T) {
	s := NewScheduler(staticSource{"thursday": {physics}}, zap.NewNop())
	s.Check(at(8, 59, 0))

	s.Answer("other")
	assert.Len(t, s.Pending(), 1)
	s.Answer("p1")
	assert.Empty(t, s.Pending())
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := NewScheduler(staticSource{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

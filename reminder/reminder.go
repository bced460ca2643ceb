// Package reminder raises attendance prompts shortly before each class.
package reminder

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"classtrack/models"
)

// Lead is how long before a class its prompt is raised.
const Lead = time.Minute

// Source lists the subjects held on a weekday.
type Source interface {
	SubjectsOn(day string) []models.Subject
}

// Scheduler checks the timetable and queues prompts. Each (subject, date,
// time) is prompted at most once.
type Scheduler struct {
	src    Source
	logger *zap.Logger

	mu      sync.Mutex
	day     string // date the raised keys belong to
	raised  map[string]bool
	pending []models.Prompt
}

// NewScheduler creates a scheduler reading from src.
func NewScheduler(src Source, logger *zap.Logger) *Scheduler {
	return &Scheduler{src: src, logger: logger, raised: make(map[string]bool)}
}

// Run checks every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("Reminder scheduler started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopped")
			return
		case now := <-ticker.C:
			s.Check(now)
		}
	}
}

// Check raises prompts for classes starting one Lead after now's minute.
// It returns the prompts raised by this call.
func (s *Scheduler) Check(now time.Time) []models.Prompt {
	weekday := strings.ToLower(now.Weekday().String())
	date := fmt.Sprintf("%d-%d-%d", now.Year(), int(now.Month()), now.Day())
	minute := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day != date {
		s.day = date
		s.raised = make(map[string]bool)
		// only today's prompts stay open
		s.pending = nil
	}

	var raised []models.Prompt
	for _, sub := range s.src.SubjectsOn(weekday) {
		start, err := time.Parse("15:04", sub.Time)
		if err != nil {
			continue
		}
		classAt := time.Date(now.Year(), now.Month(), now.Day(), start.Hour(), start.Minute(), 0, 0, now.Location())
		if !classAt.Add(-Lead).Equal(minute) {
			continue
		}

		key := sub.Name + "|" + date + "|" + sub.Time
		if s.raised[key] {
			continue
		}
		s.raised[key] = true

		p := models.Prompt{
			Key:         key,
			SubjectID:   sub.ID,
			SubjectName: sub.Name,
			Time:        sub.Time,
			RaisedAt:    now,
		}
		s.pending = append(s.pending, p)
		raised = append(raised, p)
		s.logger.Info("Attendance prompt raised", zap.String("subject", sub.Name), zap.String("time", sub.Time))
	}
	return raised
}

// Pending returns prompts not yet answered.
func (s *Scheduler) Pending() []models.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// Answer drops pending prompts for the subject record.
func (s *Scheduler) Answer(subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = slices.DeleteFunc(s.pending, func(p models.Prompt) bool {
		return p.SubjectID == subjectID
	})
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Scheduler decides when the daily retention sweep is due.
type Scheduler struct {
	hour     int
	minute   int
	location *time.Location
	now      func() time.Time
}

// NewScheduler creates a new scheduler with the given schedule time and timezone
func NewScheduler(hour, minute int, timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Scheduler{
		hour:     hour,
		minute:   minute,
		location: loc,
		now:      time.Now,
	}
}

// IsPastScheduledTime reports whether today's sweep time has passed, so a
// sweep missed while the daemon was down still runs the same day.
func (s *Scheduler) IsPastScheduledTime() bool {
	now := s.now().In(s.location)
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.location)
	return !now.Before(scheduled)
}

// TodayDate returns today's date in YYYY-MM-DD format in the configured timezone
func (s *Scheduler) TodayDate() string {
	return s.now().In(s.location).Format("2006-01-02")
}

// Location returns the scheduler's timezone location
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// SweepTracker records the date of the last successful retention sweep
type SweepTracker struct {
	stateFile string
}

// NewSweepTracker creates a new tracker with the given state file path
func NewSweepTracker(stateFile string) *SweepTracker {
	return &SweepTracker{stateFile: stateFile}
}

// LastSweepDate reads the last sweep date from the state file
func (t *SweepTracker) LastSweepDate() string {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetLastSweepDate writes the date to the state file
func (t *SweepTracker) SetLastSweepDate(date string) error {
	// Ensure directory exists
	dir := filepath.Dir(t.stateFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	return os.WriteFile(t.stateFile, []byte(date+"\n"), 0600)
}

// AlreadySwept checks if the given date was already swept
func (t *SweepTracker) AlreadySwept(date string) bool {
	return t.LastSweepDate() == date
}

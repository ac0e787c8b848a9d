// Package history persists design-log entries: the terms extracted from one
// model run, filed under the ISO week and weekday they were recorded on.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded run.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	WeekID    string    `json:"weekId" yaml:"week_id"`

	// Day is the weekday index, 0 for Monday through 6 for Sunday.
	Day int `json:"day" yaml:"day"`

	Provider  string   `json:"provider" yaml:"provider"`
	Model     string   `json:"model" yaml:"model"`
	ImagePath string   `json:"imagePath,omitempty" yaml:"image_path,omitempty"`
	Terms     []string `json:"terms" yaml:"terms"`
	Raw       string   `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// NewEntry stamps a new entry recorded at t.
func NewEntry(t time.Time, provider, model, imagePath, raw string, terms []string) *Entry {
	if terms == nil {
		terms = []string{}
	}
	return &Entry{
		ID:        uuid.NewString(),
		CreatedAt: t,
		WeekID:    WeekID(t),
		Day:       DayIndex(t),
		Provider:  provider,
		Model:     model,
		ImagePath: imagePath,
		Terms:     terms,
		Raw:       raw,
	}
}

// WeekID returns the ISO week of t as "YYYY-Www".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// DayIndex maps t's weekday to 0 (Monday) through 6 (Sunday).
func DayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DayName returns the short weekday name for a day index.
func DayName(day int) string {
	return time.Weekday((day + 1) % 7).String()[:3]
}

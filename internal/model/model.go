package model

import (
	"fmt"
	"strings"
	"time"
)

// Repeat describes how an event recurs.
type Repeat string

const (
	RepeatNone   Repeat = ""
	RepeatWeekly Repeat = "weekly"
)

const (
	// DateLayout is the wire format for event dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format for event start times.
	TimeLayout = "15:04"

	// DefaultDraftColor is the color pre-filled into a new event draft.
	DefaultDraftColor = "#4caf50"
	// FallbackColor is used when an event carries no color of its own.
	FallbackColor = "#9c27b0"
)

// Event is the sole entity of the calendar. Identity is the exact
// (Title, Date, Time) string triple; there is no surrogate ID, so a
// duplicate triple makes update/delete apply to every matching row.
type Event struct {
	Title    string `json:"title"`
	Date     string `json:"date"` // "YYYY-MM-DD"
	Time     string `json:"time"` // "HH:MM"
	Duration string `json:"duration,omitempty"`
	Color    string `json:"color,omitempty"`
	Repeat   Repeat `json:"repeat,omitempty"`

	// Static marks events sourced from the read-only feed. Static events
	// are re-derived on every load and never persisted.
	Static bool `json:"static,omitempty"`
}

// Key is the identity triple used for matching during update/delete/move.
type Key struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

func (k Key) String() string {
	return k.Title + "-" + k.Date + "-" + k.Time
}

// Key returns the event's identity triple.
func (e Event) Key() Key {
	return Key{Title: e.Title, Date: e.Date, Time: e.Time}
}

// Matches reports whether the event's identity equals k exactly.
func (e Event) Matches(k Key) bool {
	return e.Title == k.Title && e.Date == k.Date && e.Time == k.Time
}

// Valid reports whether the event has the required fields for creation.
func (e Event) Valid() bool {
	return e.Title != "" && e.Date != "" && e.Time != ""
}

// DisplayColor returns the event's color, falling back to FallbackColor.
func (e Event) DisplayColor() string {
	if e.Color == "" {
		return FallbackColor
	}
	return e.Color
}

// DisplayDuration returns the free-text duration, or "event" when unset.
func (e Event) DisplayDuration() string {
	if strings.TrimSpace(e.Duration) == "" {
		return "event"
	}
	return e.Duration
}

// ParseDate parses a "YYYY-MM-DD" value in the given location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// StartAt combines the given day's calendar date with the event's
// time-of-day, in day's location.
func (e Event) StartAt(day time.Time) (time.Time, error) {
	tod, err := time.Parse(TimeLayout, e.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", e.Time, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), 0, 0, day.Location()), nil
}

// Start resolves the event's own start instant from its Date and Time.
func (e Event) Start(loc *time.Location) (time.Time, error) {
	day, err := ParseDate(e.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return e.StartAt(day)
}

// NewDraft returns the default draft for the add-event form: empty title
// and time, today's date, default color, no repeat.
func NewDraft(now time.Time) Event {
	return Event{
		Date:  now.Format(DateLayout),
		Color: DefaultDraftColor,
	}
}

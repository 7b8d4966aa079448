// Package view holds the pure query functions over the event set: per-day
// event resolution and month/week grid construction. Nothing here caches
// or mutates; callers re-evaluate on every render.
package view

import (
	"time"

	"localcal/internal/model"
)

// DayEvent is an event annotated for a specific day.
type DayEvent struct {
	model.Event
	// Completed is true once now is strictly past the instant formed by
	// the day's date and the event's start time.
	Completed bool `json:"completed"`
}

// EventsForDay returns, in set order, the events applicable to day:
//
//   - events whose date equals day exactly, and
//   - weekly events whose origin date shares day's weekday and lies
//     strictly before day. A weekly event never reaches its own origin
//     date through the recurrence branch; that date matches exactly.
//
// Events with an unparsable date are skipped; an unparsable time leaves
// Completed false.
func EventsForDay(day time.Time, events []model.Event, now time.Time) []DayEvent {
	out := make([]DayEvent, 0)

	for _, ev := range events {
		origin, err := model.ParseDate(ev.Date, day.Location())
		if err != nil {
			continue
		}

		same := sameDay(origin, day)
		repeats := ev.Repeat == model.RepeatWeekly &&
			origin.Weekday() == day.Weekday() &&
			beforeDay(origin, day)
		if !same && !repeats {
			continue
		}

		de := DayEvent{Event: ev}
		if at, err := ev.StartAt(day); err == nil {
			de.Completed = now.After(at)
		}
		out = append(out, de)
	}

	return out
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// beforeDay reports whether a falls on an earlier calendar day than b.
func beforeDay(a, b time.Time) bool {
	if sameDay(a, b) {
		return false
	}
	return a.Before(b)
}

// Package remind arranges one-shot reminder notifications near event start
// times. A scheduling pass runs on every change to the event set (and on a
// periodic tick); events starting within the next minute get a timer armed
// for their exact start instant.
package remind

import (
	"fmt"
	"sync"
	"time"

	appLog "localcal/internal/log"
	"localcal/internal/model"
)

// Window is how far ahead of an event's start a scheduling pass will still
// arm a reminder. Events further out are picked up by a later pass; events
// already more than a minute in the past are never reminded.
const Window = time.Minute

// Notifier delivers a system-level notification. A nil Notifier (permission
// not granted, notifications disabled) skips the system notification; the
// in-UI alert fires either way.
type Notifier interface {
	Notify(title, body string) error
}

// Scheduler watches the event set and fires at most one reminder per event
// identity. Timers are cancellable and keyed by identity: a rescan replaces
// a pending timer instead of stacking another one, and identities that drop
// out of the window (deleted or moved events) get their timer cancelled.
type Scheduler struct {
	mu       sync.Mutex
	now      func() time.Time
	loc      *time.Location
	notifier Notifier
	alerts   *AlertBox
	timers   map[model.Key]*time.Timer
	fired    map[model.Key]bool
	stopped  bool
}

// NewScheduler creates a Scheduler. alerts must be non-nil; notifier may be
// nil. loc is the timezone event dates resolve in (nil means time.Local).
func NewScheduler(notifier Notifier, alerts *AlertBox, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		now:      time.Now,
		loc:      loc,
		notifier: notifier,
		alerts:   alerts,
		timers:   make(map[model.Key]*time.Timer),
		fired:    make(map[model.Key]bool),
	}
}

// InWindow reports whether an event starting at start qualifies for a
// reminder at reference time now: the start lies between 0 and 1 minute
// (inclusive) in the future. Exactly one minute out is in; two minutes out
// and anything already past are out.
func InWindow(start, now time.Time) bool {
	delay := start.Sub(now)
	return delay >= 0 && delay <= Window
}

// Rescan is one scheduling pass over the current event set.
func (s *Scheduler) Rescan(events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	now := s.now()
	qualifying := make(map[model.Key]bool)

	for _, ev := range events {
		start, err := ev.Start(s.loc)
		if err != nil {
			continue
		}
		if !InWindow(start, now) {
			continue
		}

		key := ev.Key()
		qualifying[key] = true
		if s.fired[key] {
			continue
		}

		// Replace any pending timer so one identity holds one timer.
		if prev, ok := s.timers[key]; ok {
			prev.Stop()
		}

		ev := ev
		s.timers[key] = time.AfterFunc(start.Sub(now), func() {
			s.fire(key, ev)
		})
		appLog.Debug("reminder armed", "key", key.String(), "start", start.Format(time.RFC3339))
	}

	// Identities no longer in the window lost their event (deleted, moved,
	// or drifted past); cancel instead of letting a stale timer fire.
	for key, timer := range s.timers {
		if !qualifying[key] {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

func (s *Scheduler) fire(key model.Key, ev model.Event) {
	s.mu.Lock()
	if s.stopped || s.fired[key] {
		s.mu.Unlock()
		return
	}
	s.fired[key] = true
	delete(s.timers, key)
	notifier := s.notifier
	alerts := s.alerts
	s.mu.Unlock()

	if alerts != nil {
		alerts.Show(fmt.Sprintf("⏰ Reminder: %s at %s", ev.Title, ev.Time))
	}

	if notifier == nil {
		return
	}
	title := fmt.Sprintf("⏰ Reminder: %s", ev.Title)
	body := fmt.Sprintf("%s (%s)", ev.Time, ev.DisplayDuration())
	if err := notifier.Notify(title, body); err != nil {
		appLog.Error("system notification failed", err, "key", key.String())
	}
}

// Pending returns the identities with an armed, unfired timer.
func (s *Scheduler) Pending() []model.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]model.Key, 0, len(s.timers))
	for key := range s.timers {
		keys = append(keys, key)
	}
	return keys
}

// Stop cancels all pending timers. The scheduler ignores further rescans.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// Package store owns the merged event set: static events re-derived from
// the feed on every load plus dynamic events persisted locally. It is the
// single source of truth every other component reads from.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"localcal/internal/feed"
	"localcal/internal/localstore"
	appLog "localcal/internal/log"
	"localcal/internal/model"
)

// StorageKey is the local storage key holding the dynamic event list.
const StorageKey = "calendarEvents"

// Feed supplies the static event list. Implemented by the feed package;
// faked in tests.
type Feed interface {
	Fetch(ctx context.Context) ([]model.Event, error)
}

// FeedFunc adapts a function to the Feed interface.
type FeedFunc func(ctx context.Context) ([]model.Event, error)

func (f FeedFunc) Fetch(ctx context.Context) ([]model.Event, error) { return f(ctx) }

// MultiFeed concatenates several feeds; a failed source contributes nothing
// and is logged, the rest still load.
type MultiFeed []Feed

func (m MultiFeed) Fetch(ctx context.Context) ([]model.Event, error) {
	all := make([]model.Event, 0)
	for _, f := range m {
		events, err := f.Fetch(ctx)
		if err != nil {
			appLog.Error("static feed source failed", err)
			continue
		}
		all = append(all, events...)
	}
	return all, nil
}

// Store is the in-memory ordered event collection. Mutations persist the
// dynamic subset and notify registered listeners.
type Store struct {
	mu        sync.RWMutex
	events    []model.Event
	local     *localstore.Store
	feed      Feed
	listeners []func()
}

// New creates a Store over the given persistence handle and static feed.
// Either may be nil (no persistence / no static source).
func New(local *localstore.Store, f Feed) *Store {
	return &Store{
		local: local,
		feed:  f,
	}
}

// Load rebuilds the event set: fetches the static list (failure is
// non-fatal and yields an empty static list), reads the persisted dynamic
// list (absent or unparsable yields an empty list), and sets the current
// set to static followed by dynamic. This is the only point where static
// events enter the set.
func (s *Store) Load(ctx context.Context) {
	static := s.loadStatic(ctx)
	dynamic := s.loadDynamic()

	s.mu.Lock()
	s.events = append(static, dynamic...)
	s.mu.Unlock()

	appLog.Info("event store loaded", "static_count", len(static), "dynamic_count", len(dynamic))
	s.notify()
}

func (s *Store) loadStatic(ctx context.Context) []model.Event {
	if s.feed == nil {
		return []model.Event{}
	}

	static, err := s.feed.Fetch(ctx)
	if err != nil {
		// Offline or broken feed: proceed with an empty static list.
		appLog.Error("failed to load static events", err)
		return []model.Event{}
	}

	for i := range static {
		static[i].Static = true
	}
	return static
}

func (s *Store) loadDynamic() []model.Event {
	if s.local == nil {
		return []model.Event{}
	}

	raw, ok, err := s.local.Get(StorageKey)
	if err != nil {
		appLog.Error("failed to read persisted events", err)
		return []model.Event{}
	}
	if !ok || raw == "" {
		return []model.Event{}
	}

	var dynamic []model.Event
	if err := json.Unmarshal([]byte(raw), &dynamic); err != nil {
		appLog.Error("failed to parse persisted events", err)
		return []model.Event{}
	}

	// Absence of the static flag implies dynamic.
	for i := range dynamic {
		dynamic[i].Static = false
	}
	return dynamic
}

// persist writes the dynamic subset as the complete replacement value.
// A failed write is logged and not retried. Caller holds at least a read lock.
func (s *Store) persist() {
	if s.local == nil {
		return
	}

	dynamic := make([]model.Event, 0)
	for _, ev := range s.events {
		if !ev.Static {
			dynamic = append(dynamic, ev)
		}
	}

	data, err := json.Marshal(dynamic)
	if err != nil {
		appLog.Error("failed to encode dynamic events", err)
		return
	}
	if err := s.local.Set(StorageKey, string(data)); err != nil {
		appLog.Error("failed to persist dynamic events", err)
	}
}

// Events returns a snapshot copy of the current event set.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the current number of events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Add appends the event. Events missing title, date, or time are silently
// dropped; no error is surfaced to the caller.
func (s *Store) Add(ev model.Event) {
	if !ev.Valid() {
		appLog.Debug("add rejected: missing required field", "title", ev.Title, "date", ev.Date, "time", ev.Time)
		return
	}

	s.mu.Lock()
	s.events = append(s.events, ev)
	s.persist()
	s.mu.Unlock()

	s.notify()
}

// Update replaces every event matching key with replacement. Zero matches
// is a silent no-op.
func (s *Store) Update(key model.Key, replacement model.Event) {
	s.mu.Lock()
	changed := false
	for i := range s.events {
		if s.events[i].Matches(key) {
			s.events[i] = replacement
			changed = true
		}
	}
	if changed {
		s.persist()
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Remove deletes every event matching key. Zero matches is a silent no-op.
func (s *Store) Remove(key model.Key) {
	s.mu.Lock()
	kept := s.events[:0]
	for _, ev := range s.events {
		if !ev.Matches(key) {
			kept = append(kept, ev)
		}
	}
	changed := len(kept) != len(s.events)
	s.events = kept
	if changed {
		s.persist()
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Move rewrites the date of every event matching key, leaving all other
// fields untouched. Moving onto the same date changes nothing observable
// beyond a persist of identical data.
func (s *Store) Move(key model.Key, newDate string) {
	s.mu.Lock()
	changed := false
	for i := range s.events {
		if s.events[i].Matches(key) {
			s.events[i].Date = newDate
			changed = true
		}
	}
	if changed {
		s.persist()
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// OnChange registers a listener invoked after every change to the event
// set, including a completed Load. Listeners run synchronously in
// registration order.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// JSONFeed builds a Feed over the fetcher for a static JSON feed URL.
func JSONFeed(f *feed.Fetcher, url string) Feed {
	return FeedFunc(func(ctx context.Context) ([]model.Event, error) {
		return f.FetchJSON(ctx, url)
	})
}

// ICSFeed builds a Feed over the fetcher for one ICS source, expanding
// recurrences horizonDays ahead of each fetch.
func ICSFeed(f *feed.Fetcher, src feed.ICSSource, loc *time.Location, horizonDays int) Feed {
	return FeedFunc(func(ctx context.Context) ([]model.Event, error) {
		now := time.Now().In(loc)
		return f.FetchICS(ctx, src, feed.FlattenConfig{
			Location:   loc,
			RangeStart: now.AddDate(0, 0, -1),
			RangeEnd:   now.AddDate(0, 0, horizonDays),
		})
	})
}

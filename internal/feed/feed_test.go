package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localcal/internal/model"
)

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	body := `[
		{"title":"Holiday","date":"2025-12-25","time":"00:00"},
		{"title":"Standup","date":"2025-06-02","time":"09:00","duration":"15m","color":"#2196f3","repeat":"weekly"}
	]`

	events, err := DecodeJSON([]byte(body))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Holiday", events[0].Title)
	assert.True(t, events[0].Static)
	assert.Equal(t, model.RepeatNone, events[0].Repeat)

	assert.Equal(t, model.RepeatWeekly, events[1].Repeat)
	assert.Equal(t, "15m", events[1].Duration)
	assert.True(t, events[1].Static)
}

func TestDecodeJSONInvalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeJSON([]byte(`{"not":"an array"}`))
	require.Error(t, err)
}

func TestFetchJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"title":"Holiday","date":"2025-12-25","time":"00:00"}]`))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())

	events, err := f.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Holiday", events[0].Title)
	assert.True(t, events[0].Static)
}

func TestFetchJSONFallsBackToCache(t *testing.T) {
	t.Parallel()

	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"title":"Holiday","date":"2025-12-25","time":"00:00"}]`))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())

	// First fetch primes the cache.
	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)

	// Upstream breaks; the cached body keeps the feed alive.
	failing.Store(true)
	events, err := f.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Holiday", events[0].Title)
}

func TestFetchJSONFailureNoCache(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())

	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.Error(t, err)
}

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:single@test
SUMMARY:Dentist
DTSTART:20250610T140000Z
DTEND:20250610T150000Z
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
SUMMARY:Standup
DTSTART:20250602T090000Z
DTEND:20250602T091500Z
RRULE:FREQ=WEEKLY
END:VEVENT
BEGIN:VEVENT
UID:daily@test
SUMMARY:Workout
DTSTART:20250601T070000Z
DTEND:20250601T080000Z
RRULE:FREQ=DAILY;COUNT=3
END:VEVENT
END:VCALENDAR
`

func TestFlattenICS(t *testing.T) {
	t.Parallel()

	cfg := FlattenConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}

	events, err := FlattenICS([]byte(sampleICS), cfg)
	require.NoError(t, err)

	byTitle := map[string][]model.Event{}
	for _, ev := range events {
		assert.True(t, ev.Static)
		byTitle[ev.Title] = append(byTitle[ev.Title], ev)
	}

	// Non-recurring event inside the range: one exact-date entry.
	require.Len(t, byTitle["Dentist"], 1)
	assert.Equal(t, "2025-06-10", byTitle["Dentist"][0].Date)
	assert.Equal(t, "14:00", byTitle["Dentist"][0].Time)
	assert.Equal(t, "1h", byTitle["Dentist"][0].Duration)
	assert.Equal(t, model.RepeatNone, byTitle["Dentist"][0].Repeat)

	// Plain weekly RRULE collapses to the calendar's weekly repeat.
	require.Len(t, byTitle["Standup"], 1)
	assert.Equal(t, "2025-06-02", byTitle["Standup"][0].Date)
	assert.Equal(t, "09:00", byTitle["Standup"][0].Time)
	assert.Equal(t, model.RepeatWeekly, byTitle["Standup"][0].Repeat)
	assert.Equal(t, "15m", byTitle["Standup"][0].Duration)

	// COUNT-bounded daily rule expands to exact dates.
	require.Len(t, byTitle["Workout"], 3)
	assert.Equal(t, "2025-06-01", byTitle["Workout"][0].Date)
	assert.Equal(t, "2025-06-02", byTitle["Workout"][1].Date)
	assert.Equal(t, "2025-06-03", byTitle["Workout"][2].Date)
	for _, ev := range byTitle["Workout"] {
		assert.Equal(t, model.RepeatNone, ev.Repeat)
	}
}

func TestFlattenICSRangeExcludes(t *testing.T) {
	t.Parallel()

	cfg := FlattenConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	events, err := FlattenICS([]byte(sampleICS), cfg)
	require.NoError(t, err)

	for _, ev := range events {
		// The one-off June 2025 event must not appear in a 2026 window;
		// the open-ended weekly anchor is still carried.
		assert.NotEqual(t, "Dentist", ev.Title)
	}
}

func TestFlattenICSEmptyBody(t *testing.T) {
	t.Parallel()

	_, err := FlattenICS(nil, FlattenConfig{Location: time.UTC})
	require.Error(t, err)
}

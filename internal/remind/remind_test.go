package remind

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localcal/internal/model"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) Notify(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, title+"|"+body)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestInWindowBoundaries(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 8, 59, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{name: "starts now", start: now, want: true},
		{name: "one minute out", start: now.Add(time.Minute), want: true},
		{name: "thirty seconds out", start: now.Add(30 * time.Second), want: true},
		{name: "two minutes out", start: now.Add(2 * time.Minute), want: false},
		{name: "one minute past", start: now.Add(-time.Minute), want: false},
		{name: "one second past", start: now.Add(-time.Second), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InWindow(tt.start, now))
		})
	}
}

func testScheduler(t *testing.T, now time.Time, notifier Notifier) (*Scheduler, *AlertBox) {
	t.Helper()

	alerts := NewAlertBox()
	s := NewScheduler(notifier, alerts, time.UTC)
	s.now = func() time.Time { return now }
	t.Cleanup(s.Stop)

	return s, alerts
}

func TestRescanArmsOnlyWindowEvents(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 8, 59, 30, 0, time.UTC)
	s, _ := testScheduler(t, now, &fakeNotifier{})

	s.Rescan([]model.Event{
		{Title: "Soon", Date: "2025-06-02", Time: "09:00"},
		{Title: "Later", Date: "2025-06-02", Time: "10:00"},
		{Title: "Past", Date: "2025-06-02", Time: "08:00"},
		{Title: "BadDate", Date: "nope", Time: "09:00"},
	})

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Soon", pending[0].Title)
}

func TestFireNotifiesOnceAndRaisesAlert(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	s, alerts := testScheduler(t, now, notifier)

	// Start exactly at now: zero delay, fires immediately.
	ev := model.Event{Title: "Standup", Date: "2025-06-02", Time: "09:00", Duration: "15m"}
	s.Rescan([]model.Event{ev})

	require.Eventually(t, func() bool { return notifier.count() == 1 },
		time.Second, 10*time.Millisecond)

	notifier.mu.Lock()
	call := notifier.calls[0]
	notifier.mu.Unlock()
	assert.Equal(t, "⏰ Reminder: Standup|09:00 (15m)", call)
	assert.Equal(t, "⏰ Reminder: Standup at 09:00", alerts.Current())

	// A later pass over the same (still-in-window) event must not re-arm:
	// at most one notification per identity per scheduler lifetime.
	s.Rescan([]model.Event{ev})
	assert.Empty(t, s.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notifier.count())
}

func TestNilNotifierStillRaisesAlert(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	s, alerts := testScheduler(t, now, nil)

	s.Rescan([]model.Event{{Title: "Standup", Date: "2025-06-02", Time: "09:00"}})

	require.Eventually(t, func() bool { return alerts.Current() != "" },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, "⏰ Reminder: Standup at 09:00", alerts.Current())
}

func TestRescanCancelsDeletedEvents(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	now := time.Date(2025, 6, 2, 8, 59, 30, 0, time.UTC)
	s, _ := testScheduler(t, now, notifier)

	ev := model.Event{Title: "Standup", Date: "2025-06-02", Time: "09:00"}
	s.Rescan([]model.Event{ev})
	require.Len(t, s.Pending(), 1)

	// The event is deleted before its timer fires: the pass cancels it.
	s.Rescan(nil)
	assert.Empty(t, s.Pending())
	assert.Zero(t, notifier.count())
}

func TestRescanReplacesTimerInsteadOfStacking(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 8, 59, 30, 0, time.UTC)
	s, _ := testScheduler(t, now, &fakeNotifier{})

	ev := model.Event{Title: "Standup", Date: "2025-06-02", Time: "09:00"}
	s.Rescan([]model.Event{ev})
	s.Rescan([]model.Event{ev})
	s.Rescan([]model.Event{ev})

	assert.Len(t, s.Pending(), 1)
}

func TestStopCancelsEverything(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	now := time.Date(2025, 6, 2, 8, 59, 30, 0, time.UTC)
	s, _ := testScheduler(t, now, notifier)

	s.Rescan([]model.Event{{Title: "Standup", Date: "2025-06-02", Time: "09:00"}})
	s.Stop()

	assert.Empty(t, s.Pending())

	// Rescans after Stop are ignored.
	s.Rescan([]model.Event{{Title: "Other", Date: "2025-06-02", Time: "09:00"}})
	assert.Empty(t, s.Pending())
}

func TestAlertBoxExpires(t *testing.T) {
	t.Parallel()

	a := &AlertBox{visible: 20 * time.Millisecond}
	a.Show("⏰ Reminder: Standup at 09:00")
	assert.Equal(t, "⏰ Reminder: Standup at 09:00", a.Current())

	require.Eventually(t, func() bool { return a.Current() == "" },
		time.Second, 5*time.Millisecond)
}

func TestAlertBoxReplaceRestartsClock(t *testing.T) {
	t.Parallel()

	a := &AlertBox{visible: 40 * time.Millisecond}
	a.Show("first")
	time.Sleep(25 * time.Millisecond)
	a.Show("second")
	time.Sleep(25 * time.Millisecond)

	// The first timer's expiry must not clear the replacement message.
	assert.Equal(t, "second", a.Current())

	require.Eventually(t, func() bool { return a.Current() == "" },
		time.Second, 5*time.Millisecond)
}

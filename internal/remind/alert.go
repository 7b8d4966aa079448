package remind

import (
	"sync"
	"time"
)

const defaultAlertVisible = 5 * time.Second

// AlertBox holds the transient in-UI reminder message. A shown message
// stays visible for 5 seconds, then clears; showing a new message replaces
// the old one and restarts the clock.
type AlertBox struct {
	mu      sync.Mutex
	msg     string
	timer   *time.Timer
	visible time.Duration
}

func NewAlertBox() *AlertBox {
	return &AlertBox{}
}

// Show displays msg for the visibility window.
func (a *AlertBox) Show(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.msg = msg
	if a.timer != nil {
		a.timer.Stop()
	}

	visible := a.visible
	if visible <= 0 {
		visible = defaultAlertVisible
	}
	a.timer = time.AfterFunc(visible, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.msg == msg {
			a.msg = ""
		}
	})
}

// Current returns the visible message, or "" when none is showing.
func (a *AlertBox) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.msg
}

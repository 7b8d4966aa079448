package remind

import "github.com/gen2brain/beeep"

// DesktopNotifier emits system-level notifications through the OS
// notification surface.
type DesktopNotifier struct {
	// Icon is a path to the notification icon image.
	Icon string
}

func (n *DesktopNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, n.Icon)
}

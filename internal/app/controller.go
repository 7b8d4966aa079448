// Package app owns the interactive session state: the modal state machine
// for add/edit, the draft event, and the anchor date + view mode the grid
// renders from. It mutates nothing itself; all store writes go through the
// explicit commands below.
package app

import (
	"sync"
	"time"

	"localcal/internal/model"
	"localcal/internal/store"
	"localcal/internal/view"
)

// ModalState is the visibility state of the event modal.
type ModalState string

const (
	ModalClosed  ModalState = "closed"
	ModalAdding  ModalState = "adding"
	ModalEditing ModalState = "editing"
)

// Controller applies user actions to the event store and tracks the
// session's view and modal state.
type Controller struct {
	mu    sync.Mutex
	store *store.Store
	now   func() time.Time

	anchor time.Time
	mode   view.Mode

	modal    ModalState
	draft    model.Event
	selected model.Key
	hasSel   bool
}

// New creates a Controller anchored at the current date in month view.
func New(s *store.Store, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:  s,
		now:    now,
		anchor: now(),
		mode:   view.ModeMonth,
		modal:  ModalClosed,
	}
}

// Mode returns the active view mode.
func (c *Controller) Mode() view.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Anchor returns the current anchor date.
func (c *Controller) Anchor() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor
}

// ToggleView alternates between month and week view.
func (c *Controller) ToggleView() view.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = c.mode.Toggle()
	return c.mode
}

// Navigate offsets the anchor by ±1 month or ±1 week depending on the
// active view.
func (c *Controller) Navigate(offset int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = view.AnchorAdd(c.anchor, c.mode, offset)
	return c.anchor
}

// GridCells returns the active view's cell sequence.
func (c *Controller) GridCells() []*time.Time {
	c.mu.Lock()
	mode, anchor := c.mode, c.anchor
	c.mu.Unlock()
	return view.Grid(mode, anchor)
}

// Day resolves the events applicable to the given day.
func (c *Controller) Day(day time.Time) []view.DayEvent {
	return view.EventsForDay(day, c.store.Events(), c.now())
}

// Modal returns the current modal state.
func (c *Controller) Modal() ModalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modal
}

// Draft returns the current draft event.
func (c *Controller) Draft() model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// OpenAdd moves closed -> adding and resets the draft to defaults: empty
// title and time, today's date, the default color, no repeat.
func (c *Controller) OpenAdd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modal = ModalAdding
	c.draft = model.NewDraft(c.now())
	c.hasSel = false
}

// OpenEdit moves closed -> editing, seeding the draft from the clicked
// event and remembering its identity for the later match.
func (c *Controller) OpenEdit(ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modal = ModalEditing
	c.draft = ev
	c.selected = ev.Key()
	c.hasSel = true
}

// SetDraft lets the form mutate the draft in place.
func (c *Controller) SetDraft(ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = ev
}

// Submit applies an adding-state draft. With a valid draft the event is
// appended and the modal closes; an invalid draft keeps the modal open and
// changes nothing.
func (c *Controller) Submit() bool {
	c.mu.Lock()
	if c.modal != ModalAdding || !c.draft.Valid() {
		c.mu.Unlock()
		return false
	}
	draft := c.draft
	c.reset()
	c.mu.Unlock()

	c.store.Add(draft)
	return true
}

// Update replaces the selected event with the draft and closes the modal.
func (c *Controller) Update() bool {
	c.mu.Lock()
	if c.modal != ModalEditing || !c.hasSel {
		c.mu.Unlock()
		return false
	}
	key, draft := c.selected, c.draft
	c.reset()
	c.mu.Unlock()

	c.store.Update(key, draft)
	return true
}

// Delete removes the selected event and closes the modal.
func (c *Controller) Delete() bool {
	c.mu.Lock()
	if c.modal != ModalEditing || !c.hasSel {
		c.mu.Unlock()
		return false
	}
	key := c.selected
	c.reset()
	c.mu.Unlock()

	c.store.Remove(key)
	return true
}

// Dismiss closes the modal from any state, discarding the draft without
// touching the store.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Drop applies a drag-move: the event identified by key is rewritten onto
// the drop target's date.
func (c *Controller) Drop(key model.Key, newDate string) {
	c.store.Move(key, newDate)
}

// reset returns the modal to closed and clears selection. Caller holds mu.
func (c *Controller) reset() {
	c.modal = ModalClosed
	c.draft = model.Event{}
	c.hasSel = false
	c.selected = model.Key{}
}

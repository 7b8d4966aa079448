package view

import "time"

// Mode selects which grid builder the session uses.
type Mode string

const (
	ModeMonth Mode = "month"
	ModeWeek  Mode = "week"
)

// Toggle alternates between the two views.
func (m Mode) Toggle() Mode {
	if m == ModeMonth {
		return ModeWeek
	}
	return ModeMonth
}

// MonthGrid returns the ordered cell sequence for the month containing
// anchor: one nil placeholder per weekday before the 1st (Sunday = 0),
// then each calendar date of the month ascending. Cells are midnight
// instants in anchor's location.
func MonthGrid(anchor time.Time) []*time.Time {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())

	cells := make([]*time.Time, 0, 37)
	for i := 0; i < int(first.Weekday()); i++ {
		cells = append(cells, nil)
	}

	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		day := d
		cells = append(cells, &day)
	}

	return cells
}

// WeekGrid returns exactly 7 cells: the consecutive dates starting from
// the Sunday of the week containing anchor.
func WeekGrid(anchor time.Time) []*time.Time {
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())
	sunday := day.AddDate(0, 0, -int(day.Weekday()))

	cells := make([]*time.Time, 0, 7)
	for i := 0; i < 7; i++ {
		d := sunday.AddDate(0, 0, i)
		cells = append(cells, &d)
	}

	return cells
}

// Grid dispatches to the builder for mode.
func Grid(mode Mode, anchor time.Time) []*time.Time {
	if mode == ModeWeek {
		return WeekGrid(anchor)
	}
	return MonthGrid(anchor)
}

// AnchorAdd offsets the anchor by offset months (month view) or weeks
// (week view); navigation uses offset = ±1.
func AnchorAdd(anchor time.Time, mode Mode, offset int) time.Time {
	if mode == ModeWeek {
		return anchor.AddDate(0, 0, 7*offset)
	}
	return anchor.AddDate(0, offset, 0)
}

package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "localcal/internal/log"
	"localcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ICSSource identifies a single ICS subscription.
type ICSSource struct {
	ID   string
	Name string
	URL  string
}

// FlattenConfig controls how ICS events are flattened into calendar events.
type FlattenConfig struct {
	// Location is the timezone dates and times are rendered in.
	// If nil, time.Local is used.
	Location *time.Location

	// RangeStart / RangeEnd bound recurrence expansion.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion of a single VEVENT. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// FetchICS retrieves and flattens a single ICS source into static events.
func (f *Fetcher) FetchICS(ctx context.Context, src ICSSource, cfg FlattenConfig) ([]model.Event, error) {
	body, err := f.fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch ics feed %q: %w", src.ID, err)
	}

	events, err := FlattenICS(body, cfg)
	if err != nil {
		return nil, fmt.Errorf("flatten ics feed %q: %w", src.ID, err)
	}

	appLog.Info("ics feed loaded", "id", src.ID, "event_count", len(events))
	return events, nil
}

// FlattenICS parses an ICS payload and flattens its VEVENTs into calendar
// events:
//
//   - A plain weekly RRULE (interval 1, no COUNT/UNTIL/BYDAY list) maps to a
//     weekly-repeating event anchored at DTSTART, since the calendar's own
//     recurrence model covers exactly that case.
//   - Any other RRULE is expanded within [RangeStart, RangeEnd] and each
//     occurrence becomes an exact-date event.
//   - Non-recurring VEVENTs become a single exact-date event when they fall
//     inside the range.
//
// Every returned event is marked static.
func FlattenICS(body []byte, cfg FlattenConfig) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("ics flatten: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	out := make([]model.Event, 0)

	for _, ve := range cal.Events() {
		events, perr := flattenVEvent(ve, cfg)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent skipped", perr, "uid", veUID(ve))
			continue
		}
		out = append(out, events...)
	}

	return out, nil
}

func flattenVEvent(ve *ical.VEvent, cfg FlattenConfig) ([]model.Event, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("missing DTSTART: %w", err)
	}

	base := model.Event{
		Title:    veSummary(ve),
		Duration: veDuration(ve, start),
		Static:   true,
	}
	if base.Title == "" {
		return nil, errors.New("missing SUMMARY")
	}

	rawRRule := ""
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rawRRule = p.Value
	}
	exDates := len(ve.GetProperties(ical.ComponentPropertyExdate)) > 0

	// Non-recurring: one exact-date event when inside the range.
	if rawRRule == "" {
		localStart := start.In(cfg.Location)
		if localStart.Before(cfg.RangeStart) || localStart.After(cfg.RangeEnd) {
			return nil, nil
		}
		return []model.Event{eventAt(base, localStart)}, nil
	}

	// Plain weekly rules map onto the calendar's own weekly repeat.
	if opt, oerr := rrule.StrToROption(rawRRule); oerr == nil && isPlainWeekly(opt) && !exDates {
		ev := eventAt(base, start.In(cfg.Location))
		ev.Repeat = model.RepeatWeekly
		return []model.Event{ev}, nil
	}

	// Everything else expands to exact-date occurrences.
	r, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		return nil, fmt.Errorf("parse RRULE %q: %w", rawRRule, err)
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	applyExDates(ve, &set, start)

	occTimes := set.Between(cfg.RangeStart.In(start.Location()), cfg.RangeEnd.In(start.Location()), true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		appLog.Error("ics flatten: truncated occurrences", errors.New("max occurrences reached"),
			"uid", veUID(ve), "cap", cfg.MaxOccurrencesPerEvent)
	}

	out := make([]model.Event, 0, len(occTimes))
	for _, occ := range occTimes {
		out = append(out, eventAt(base, occ.In(cfg.Location)))
	}
	return out, nil
}

// isPlainWeekly reports whether the rule is a bare weekly repetition that
// the Event.Repeat model can represent without expansion.
func isPlainWeekly(opt *rrule.ROption) bool {
	if opt == nil || opt.Freq != rrule.WEEKLY {
		return false
	}
	if opt.Interval > 1 || opt.Count > 0 || !opt.Until.IsZero() {
		return false
	}
	// A BYDAY list of more than one weekday cannot collapse to one anchor.
	return len(opt.Byweekday) <= 1
}

func applyExDates(ve *ical.VEvent, set *rrule.Set, start time.Time) {
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				set.ExDate(t.In(start.Location()))
			}
		}
	}
}

// parseICSTime parses a basic ICS date/date-time string.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}

func eventAt(base model.Event, start time.Time) model.Event {
	ev := base
	ev.Date = start.Format(model.DateLayout)
	ev.Time = start.Format(model.TimeLayout)
	return ev
}

func veSummary(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		return p.Value
	}
	return ""
}

func veUID(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}

// veDuration renders DTEND-DTSTART as short free text ("1h30m", "45m").
func veDuration(ve *ical.VEvent, start time.Time) string {
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		return ""
	}

	d := end.Sub(start)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

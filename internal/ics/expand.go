package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"moncal/internal/importer"
	appLog "moncal/internal/log"
)

const defaultMaxOccurrencesPerEvent = 400

// Window bounds recurrence expansion, [Start, End).
type Window struct {
	Start time.Time
	End   time.Time

	// Location converts timed occurrences to a calendar day. Nil means time.Local.
	Location *time.Location

	// MaxOccurrencesPerEvent caps a single RRULE. Zero uses the default.
	MaxOccurrencesPerEvent int
}

// MonthWindow covers the given month in loc.
func MonthWindow(year, month int, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0), Location: loc}
}

// Rows converts parsed VEVENTs into importer rows ("date", "title", "type").
//
// Non-recurring events become one row on their start day wherever that day
// falls. Recurring events are expanded inside w only, with EXDATE removals
// and RECURRENCE-ID overrides applied.
func Rows(events []ParsedEvent, w Window) ([]importer.Row, error) {
	if !w.End.After(w.Start) {
		return nil, errors.New("ics: window end is not after start")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxOccurrencesPerEvent <= 0 {
		w.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride() && ev.UID != "" {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		}
	}

	rows := make([]importer.Row, 0, len(events))
	for _, ev := range events {
		switch {
		case ev.IsOverride() && ev.UID != "":
			// Emitted through its base event.
			continue
		case ev.RawRRule == "":
			rows = append(rows, makeRow(ev, ev.Start, w.Location))
		default:
			rows = append(rows, expandRecurring(ev, overridesByUID[ev.UID], w)...)
		}
	}
	return rows, nil
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, w Window) []importer.Row {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Between is inclusive; drop anything landing exactly on End.
	rangeStart := w.Start.In(ev.Start.Location())
	rangeEnd := w.End.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > w.MaxOccurrencesPerEvent {
		appLog.Warn("ics: occurrences truncated", "uid", ev.UID, "cap", w.MaxOccurrencesPerEvent)
		occTimes = occTimes[:w.MaxOccurrencesPerEvent]
	}

	rows := make([]importer.Row, 0, len(occTimes))
	for _, occ := range occTimes {
		if !occ.Before(rangeEnd) {
			continue
		}
		base := ev
		start := occ
		if o, ok := findOverride(overrides, occ); ok {
			base = o
			start = o.Start
			if base.Category == "" {
				base.Category = ev.Category
			}
		}
		rows = append(rows, makeRow(base, start, w.Location))
	}
	return rows
}

// findOverride returns the override whose RECURRENCE-ID equals occStart.
func findOverride(overrides []ParsedEvent, occStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(occStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeRow(ev ParsedEvent, start time.Time, loc *time.Location) importer.Row {
	day := start
	if !ev.AllDay {
		day = start.In(loc)
	}
	row := importer.Row{
		"date":  day.Format("2006-01-02"),
		"title": ev.Summary,
	}
	if ev.Category != "" {
		row["type"] = ev.Category
	}
	return row
}

// ImportRows parses body and returns the rows for the given month.
func ImportRows(body []byte, year, month int, loc *time.Location) ([]importer.Row, error) {
	events, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return Rows(events, MonthWindow(year, month, loc))
}

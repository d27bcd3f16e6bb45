package calendar

import (
	"fmt"
	"regexp"
	"time"

	"moncal/internal/model"
)

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DateKey formats the lookup key used by Event.Date.
func DateKey(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// IsValidDate reports whether s is a fixed-width YYYY-MM-DD string naming a
// real calendar date ("2025-02-30" is rejected).
func IsValidDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// EventsOnDate returns the events whose Date equals the key for the given
// day, in their original order. Matching is by string, so "2025-8-1" never
// matches day 1 of August.
func EventsOnDate(events []model.Event, year, month, day int) []model.Event {
	key := DateKey(year, month, day)
	var out []model.Event
	for _, ev := range events {
		if ev.Date == key {
			out = append(out, ev)
		}
	}
	return out
}

// Index buckets events by date key for repeated per-cell lookups.
type Index map[string][]model.Event

func NewIndex(events []model.Event) Index {
	idx := make(Index)
	for _, ev := range events {
		idx[ev.Date] = append(idx[ev.Date], ev)
	}
	return idx
}

// On is EventsOnDate over the prebuilt buckets.
func (idx Index) On(year, month, day int) []model.Event {
	return idx[DateKey(year, month, day)]
}

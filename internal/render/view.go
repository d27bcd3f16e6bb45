// Package render turns a calendar snapshot into the month view: a plain data
// model for the JSON API and an HTML page that the capture package rasterizes.
package render

import (
	"time"

	"moncal/internal/calendar"
	"moncal/internal/model"
)

// MaxVisibleEvents is how many events a cell lists before "+N".
const MaxVisibleEvents = 3

// EventView is an event with its type resolved against the catalog.
type EventView struct {
	ID    string          `json:"id"`
	Date  string          `json:"date"`
	Title string          `json:"title"`
	Type  model.EventType `json:"type"`
}

// Cell is one grid position of the month view.
type Cell struct {
	calendar.CalendarDay
	Key      string      `json:"key"`
	Weekday  int         `json:"weekday"`
	Today    bool        `json:"today"`
	Events   []EventView `json:"events"`
	Overflow int         `json:"overflow"`
}

// MonthView is everything needed to draw one month.
type MonthView struct {
	Year     int                `json:"year"`
	Month    int                `json:"month"`
	Title    string             `json:"title"`
	Weekdays []string           `json:"weekdays"`
	Cells    []Cell             `json:"cells"`
	Memo     string             `json:"memo"`
	Text     model.TextSettings `json:"textSettings"`
	Size     model.CalendarSize `json:"calendarSize"`
	Header   string             `json:"headerColor"`
}

// ResolveEvents attaches the catalog type to every event.
func ResolveEvents(events []model.Event, catalog []model.EventType) []EventView {
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, EventView{
			ID:    ev.ID,
			Date:  ev.Date,
			Title: ev.Title,
			Type:  model.ResolveType(catalog, ev.TypeID),
		})
	}
	return out
}

// BuildMonth lays out st's displayed month. Events are attached to
// current-month cells only; adjacent-month cells stay empty. now decides the
// "today" highlight.
func BuildMonth(st *model.CalendarState, now time.Time) MonthView {
	return BuildMonthFor(st, st.Year, st.Month, now)
}

// BuildMonthFor is BuildMonth for an arbitrary month of st's events.
func BuildMonthFor(st *model.CalendarState, year, month int, now time.Time) MonthView {
	idx := calendar.NewIndex(st.Events)
	days := calendar.BuildMonthGrid(year, month)

	cells := make([]Cell, 0, len(days))
	for i, d := range days {
		c := Cell{
			CalendarDay: d,
			Key:         calendar.DateKey(d.Year, d.Month, d.Date),
			Weekday:     i % 7,
			Events:      []EventView{},
		}
		if d.IsCurrentMonth {
			c.Today = now.Year() == d.Year && int(now.Month()) == d.Month && now.Day() == d.Date
			evs := ResolveEvents(idx.On(d.Year, d.Month, d.Date), st.EventTypes)
			c.Events = evs
			if len(evs) > MaxVisibleEvents {
				c.Overflow = len(evs) - MaxVisibleEvents
			}
		}
		cells = append(cells, c)
	}

	return MonthView{
		Year:     year,
		Month:    month,
		Title:    calendar.MonthTitle(year, month),
		Weekdays: calendar.Weekdays(),
		Cells:    cells,
		Memo:     st.CommonEvents,
		Text:     st.TextSettings,
		Size:     st.CalendarSize,
		Header:   st.HeaderColor,
	}
}

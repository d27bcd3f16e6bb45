package store

import (
	"moncal/internal/calendar"
	"moncal/internal/model"
)

// PrevMonth steps the displayed month back by one, wrapping into December
// of the previous year.
func (s *Store) PrevMonth() {
	s.step(-1)
}

// NextMonth steps forward by one month.
func (s *Store) NextMonth() {
	s.step(1)
}

func (s *Store) step(delta int) {
	s.replace(func(next *model.CalendarState) {
		next.Year, next.Month = calendar.Shift(next.Year, next.Month, delta)
	})
}

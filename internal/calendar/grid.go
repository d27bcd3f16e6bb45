// Package calendar holds the date arithmetic behind the month view: the
// fixed 6-week grid and the YYYY-MM-DD event lookup.
package calendar

import (
	"fmt"
	"time"
)

// GridCells is the number of cells in a month view (6 weeks x 7 days).
const GridCells = 42

// CalendarDay is one grid cell. Date is the day of month; Year/Month
// locate the cell when it spills into an adjacent month.
type CalendarDay struct {
	Date           int  `json:"date"`
	Month          int  `json:"month"`
	Year           int  `json:"year"`
	IsCurrentMonth bool `json:"isCurrentMonth"`
}

// BuildMonthGrid returns the 42 days shown for the given year and 1-indexed
// month, starting at the Sunday on or before the 1st.
//
// month must already be in 1..12.
func BuildMonthGrid(year, month int) []CalendarDay {
	// Noon UTC keeps AddDate away from any DST edge.
	first := time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	days := make([]CalendarDay, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		days = append(days, CalendarDay{
			Date:           d.Day(),
			Month:          int(d.Month()),
			Year:           d.Year(),
			IsCurrentMonth: d.Month() == first.Month() && d.Year() == first.Year(),
		})
	}
	return days
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// Shift moves (year, month) by delta months, wrapping the year.
func Shift(year, month, delta int) (int, int) {
	t := time.Date(year, time.Month(month), 1, 12, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), int(t.Month())
}

// Weekdays returns the Korean weekday labels, Sunday first.
func Weekdays() []string {
	return []string{"일", "월", "화", "수", "목", "금", "토"}
}

// MonthTitle formats the header, e.g. "2025년 8월".
func MonthTitle(year, month int) string {
	return fmt.Sprintf("%d년 %d월", year, month)
}

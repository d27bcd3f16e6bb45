package calendar

import (
	"reflect"
	"testing"
	"time"

	"moncal/internal/model"
)

func TestBuildMonthGridShape(t *testing.T) {
	for year := 1999; year <= 2032; year++ {
		for month := 1; month <= 12; month++ {
			days := BuildMonthGrid(year, month)
			if len(days) != GridCells {
				t.Fatalf("%d-%02d: expected %d cells, got %d", year, month, GridCells, len(days))
			}

			var prev time.Time
			inMonth := 0
			for i, d := range days {
				cur := time.Date(d.Year, time.Month(d.Month), d.Date, 0, 0, 0, 0, time.UTC)
				if i > 0 && !cur.After(prev) {
					t.Fatalf("%d-%02d: cell %d (%s) not after %s", year, month, i, cur, prev)
				}
				if i > 0 && cur.Sub(prev) != 24*time.Hour {
					t.Fatalf("%d-%02d: gap between cell %d and %d", year, month, i-1, i)
				}
				prev = cur
				if d.IsCurrentMonth {
					inMonth++
				}
			}
			if first := days[0]; time.Date(first.Year, time.Month(first.Month), first.Date, 0, 0, 0, 0, time.UTC).Weekday() != time.Sunday {
				t.Fatalf("%d-%02d: grid does not start on Sunday", year, month)
			}
			if inMonth != DaysIn(year, month) {
				t.Errorf("%d-%02d: expected %d current-month cells, got %d", year, month, DaysIn(year, month), inMonth)
			}
		}
	}
}

func TestBuildMonthGridAugust2025(t *testing.T) {
	days := BuildMonthGrid(2025, 8)

	first := days[0]
	if first.Year != 2025 || first.Month != 7 || first.Date != 27 || first.IsCurrentMonth {
		t.Errorf("Expected first cell July 27 (not current), got %+v", first)
	}

	// Aug 31 is a Sunday, so the Saturday after it is Sep 6 and the
	// remaining cells run into the following week.
	var aug31 int
	for i, d := range days {
		if d.Month == 8 && d.Date == 31 {
			aug31 = i
		}
	}
	sat := days[aug31+6]
	if sat.Month != 9 || sat.Date != 6 || sat.IsCurrentMonth {
		t.Errorf("Expected Saturday after Aug 31 to be Sep 6 (not current), got %+v", sat)
	}

	last := days[len(days)-1]
	if last.Month != 9 || last.IsCurrentMonth {
		t.Errorf("Expected last cell in September, got %+v", last)
	}
	if time.Date(last.Year, time.Month(last.Month), last.Date, 0, 0, 0, 0, time.UTC).Weekday() != time.Saturday {
		t.Errorf("Expected last cell to be a Saturday, got %+v", last)
	}
}

func TestBuildMonthGridFebruaryStartingSunday(t *testing.T) {
	// Feb 2015 starts on Sunday and spans exactly four weeks; the grid still
	// has 42 cells with two trailing March weeks.
	days := BuildMonthGrid(2015, 2)
	if days[0].Month != 2 || days[0].Date != 1 {
		t.Errorf("Expected grid to open on Feb 1, got %+v", days[0])
	}
	if days[41].Month != 3 || days[41].Date != 14 {
		t.Errorf("Expected grid to close on Mar 14, got %+v", days[41])
	}
}

func TestEventsOnDate(t *testing.T) {
	events := []model.Event{
		{ID: "1", Date: "2025-08-15", Title: "a"},
		{ID: "2", Date: "2025-8-15", Title: "unpadded"},
		{ID: "3", Date: "2025-08-16", Title: "b"},
		{ID: "4", Date: "2025-08-15", Title: "c"},
	}

	got := EventsOnDate(events, 2025, 8, 15)
	want := []model.Event{events[0], events[3]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if got := EventsOnDate(events[:1], 2025, 8, 16); len(got) != 0 {
		t.Errorf("Expected no events on the 16th, got %+v", got)
	}

	idx := NewIndex(events)
	if !reflect.DeepEqual(idx.On(2025, 8, 15), want) {
		t.Errorf("Index.On disagrees with EventsOnDate: %+v", idx.On(2025, 8, 15))
	}
	if len(idx.On(2025, 8, 1)) != 0 {
		t.Error("Expected empty bucket for a day without events")
	}
}

func TestIsValidDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2025-08-01", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-8-1", false},
		{"2025/08/01", false},
		{"not-a-date", false},
		{"2025-13-01", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidDate(tt.in); got != tt.want {
			t.Errorf("IsValidDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShiftAndTitle(t *testing.T) {
	if y, m := Shift(2025, 1, -1); y != 2024 || m != 12 {
		t.Errorf("Expected 2024-12, got %d-%d", y, m)
	}
	if y, m := Shift(2025, 12, 1); y != 2026 || m != 1 {
		t.Errorf("Expected 2026-01, got %d-%d", y, m)
	}
	if got := MonthTitle(2025, 8); got != "2025년 8월" {
		t.Errorf("Expected 2025년 8월, got %s", got)
	}
	if got := DateKey(2025, 8, 1); got != "2025-08-01" {
		t.Errorf("Expected 2025-08-01, got %s", got)
	}
}

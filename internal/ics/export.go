package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"moncal/internal/model"
)

const ProductID = "-//moncal//Monthly Calendar//KO"

// Export writes events as all-day VEVENTs. The event id is the UID and the
// resolved type name goes into CATEGORIES so a re-import maps it back.
// Events with an unparsable date are skipped.
func Export(w io.Writer, calName string, events []model.Event, catalog []model.EventType) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if calName != "" {
		cal.SetXWRCalName(calName)
	}

	stamp := time.Now().UTC()
	for _, e := range events {
		day, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			continue
		}
		et := model.ResolveType(catalog, e.TypeID)

		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetAllDayStartAt(day)
		ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ve.SetSummary(e.Title)
		ve.SetProperty(ical.ComponentPropertyCategories, et.Name)
		ve.SetProperty("COLOR", et.Color)
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("ics: write calendar: %w", err)
	}
	return nil
}

// Filename is the download name for a month's feed, e.g. calendar-2025-08.ics.
func Filename(year, month int) string {
	return fmt.Sprintf("calendar-%d-%02d.ics", year, month)
}

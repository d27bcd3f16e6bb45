// Package importer turns loosely-typed spreadsheet rows into calendar events.
package importer

import (
	"fmt"
	"strings"

	"moncal/internal/calendar"
	"moncal/internal/model"
)

// Row is one data row keyed by its header cell.
type Row map[string]string

type field int

const (
	fieldDate field = iota
	fieldTitle
	fieldType
)

// columnAliases lists, per field, the header spellings accepted on import in
// priority order.
var columnAliases = map[field][]string{
	fieldDate:  {"date", "날짜", "Date"},
	fieldTitle: {"title", "일정", "Title", "내용"},
	fieldType:  {"type", "유형", "Type"},
}

// Result is the outcome of a batch: the events that passed and one message
// per rejected row.
type Result struct {
	Events []model.Event
	Errors []string
}

// Normalizer converts rows into events against a type catalog.
type Normalizer struct {
	// NewID generates event ids. Required.
	NewID func() string
}

// Normalize processes rows in order. A failing row is reported in
// Result.Errors and skipped; it never aborts the batch.
func (n Normalizer) Normalize(rows []Row, catalog []model.EventType) Result {
	res := Result{Events: []model.Event{}}
	fallback := model.FallbackType(catalog)

	for i, row := range rows {
		// Spreadsheet row number: 1-based plus the header row.
		rowNumber := i + 2

		date := lookup(row, fieldDate)
		if date == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("행 %d: 날짜가 없습니다.", rowNumber))
			continue
		}
		title := lookup(row, fieldTitle)
		if title == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("행 %d: 일정 제목이 없습니다.", rowNumber))
			continue
		}
		typeName := lookup(row, fieldType)
		if typeName == "" {
			typeName = model.FallbackTypeName
		}

		date = NormalizeDate(date)
		if !calendar.IsValidDate(date) {
			res.Errors = append(res.Errors, fmt.Sprintf("행 %d: 잘못된 날짜 형식입니다. (%s)", rowNumber, date))
			continue
		}

		et, ok := model.FindTypeByName(catalog, typeName)
		if !ok {
			et = fallback
		}

		res.Events = append(res.Events, model.Event{
			ID:     n.NewID(),
			Date:   date,
			Title:  title,
			TypeID: et.ID,
		})
	}

	return res
}

// lookup returns the first non-blank value among the field's aliases.
func lookup(row Row, f field) string {
	for _, col := range columnAliases[f] {
		if v := strings.TrimSpace(row[col]); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeDate rewrites "2025/8/1" to "2025-08-01". Values without exactly
// three slash-separated parts are returned unchanged for validation to reject.
func NormalizeDate(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return s
	}
	return parts[0] + "-" + padTwo(parts[1]) + "-" + padTwo(parts[2])
}

func padTwo(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

// Summary renders the end-of-batch notification shown to the user.
func Summary(res Result) string {
	var b strings.Builder
	if len(res.Errors) > 0 {
		b.WriteString("오류가 발생했습니다:\n")
		b.WriteString(strings.Join(res.Errors, "\n"))
		b.WriteString("\n\n유효한 데이터만 추가됩니다.")
	}
	if len(res.Events) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d개의 일정이 추가되었습니다.", len(res.Events))
	}
	return b.String()
}

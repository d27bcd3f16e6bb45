// Package model defines the calendar state shared by the store, importers,
// renderer and HTTP API.
package model

// Event is a single dated calendar entry.
//
// TypeID refers to an EventType in the catalog. The type is resolved at
// display time, so editing a type's name or color is reflected on every
// event that points at it.
type Event struct {
	ID     string `json:"id"`
	Date   string `json:"date"` // YYYY-MM-DD
	Title  string `json:"title"`
	TypeID string `json:"typeId"`
}

// EventInput is an Event without an id, as submitted by a form or importer.
type EventInput struct {
	Date   string `json:"date"`
	Title  string `json:"title"`
	TypeID string `json:"typeId"`
}

// EventPatch carries the fields of an Event to overwrite. Nil means keep.
type EventPatch struct {
	Date   *string `json:"date,omitempty"`
	Title  *string `json:"title,omitempty"`
	TypeID *string `json:"typeId,omitempty"`
}

// EventType is a named, colored category.
type EventType struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

type EventTypeInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type EventTypePatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// TextSettings is pure presentation; every field is a CSS value.
type TextSettings struct {
	FontFamily     string `json:"fontFamily" yaml:"font_family"`
	EventFontSize  string `json:"eventFontSize" yaml:"event_font_size"`
	EventTextColor string `json:"eventTextColor" yaml:"event_text_color"`
	MemoFontSize   string `json:"memoFontSize" yaml:"memo_font_size"`
	MemoTextColor  string `json:"memoTextColor" yaml:"memo_text_color"`
}

type TextSettingsPatch struct {
	FontFamily     *string `json:"fontFamily,omitempty"`
	EventFontSize  *string `json:"eventFontSize,omitempty"`
	EventTextColor *string `json:"eventTextColor,omitempty"`
	MemoFontSize   *string `json:"memoFontSize,omitempty"`
	MemoTextColor  *string `json:"memoTextColor,omitempty"`
}

// Apply returns s with every non-nil field of p merged in.
func (s TextSettings) Apply(p TextSettingsPatch) TextSettings {
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.EventFontSize != nil {
		s.EventFontSize = *p.EventFontSize
	}
	if p.EventTextColor != nil {
		s.EventTextColor = *p.EventTextColor
	}
	if p.MemoFontSize != nil {
		s.MemoFontSize = *p.MemoFontSize
	}
	if p.MemoTextColor != nil {
		s.MemoTextColor = *p.MemoTextColor
	}
	return s
}

// CalendarSize is the calendar's width/height in percent of the default.
type CalendarSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// CalendarState is the aggregate root of a session. Values handed out by
// the store are shared and must be treated as read-only.
type CalendarState struct {
	Year         int          `json:"year"`
	Month        int          `json:"month"`
	Events       []Event      `json:"events"`
	EventTypes   []EventType  `json:"eventTypes"`
	CommonEvents string       `json:"commonEvents"`
	TextSettings TextSettings `json:"textSettings"`
	CalendarSize CalendarSize `json:"calendarSize"`
	HeaderColor  string       `json:"headerColor"`
}

// FallbackTypeName is the type assigned when none is given or matched.
const FallbackTypeName = "일정"

// DefaultEventTypes returns a fresh copy of the built-in catalog.
func DefaultEventTypes() []EventType {
	return []EventType{
		{ID: "1", Name: "일정", Color: "#3b82f6"}, // blue
		{ID: "2", Name: "실적", Color: "#10b981"}, // green
		{ID: "3", Name: "상장", Color: "#f59e0b"}, // yellow
		{ID: "4", Name: "청약", Color: "#ef4444"}, // red
	}
}

func DefaultTextSettings() TextSettings {
	return TextSettings{
		FontFamily:     "'OnglipBakdahyeonche', sans-serif",
		EventFontSize:  "12px",
		EventTextColor: "#374151",
		MemoFontSize:   "14px",
		MemoTextColor:  "#374151",
	}
}

func DefaultCalendarSize() CalendarSize {
	return CalendarSize{Width: 100, Height: 100}
}

const DefaultHeaderColor = "#1f2937"

// FindType returns the catalog entry with the given id.
func FindType(types []EventType, id string) (EventType, bool) {
	for _, t := range types {
		if t.ID == id {
			return t, true
		}
	}
	return EventType{}, false
}

// FindTypeByName returns the first catalog entry whose name matches exactly.
func FindTypeByName(types []EventType, name string) (EventType, bool) {
	for _, t := range types {
		if t.Name == name {
			return t, true
		}
	}
	return EventType{}, false
}

// FallbackType is the entry used for unknown or dangling type references:
// the catalog's "일정" entry if present, otherwise the first entry.
func FallbackType(types []EventType) EventType {
	if t, ok := FindTypeByName(types, FallbackTypeName); ok {
		return t
	}
	if len(types) > 0 {
		return types[0]
	}
	return DefaultEventTypes()[0]
}

// ResolveType looks up id and falls back to FallbackType when the
// referenced type no longer exists.
func ResolveType(types []EventType, id string) EventType {
	if t, ok := FindType(types, id); ok {
		return t
	}
	return FallbackType(types)
}

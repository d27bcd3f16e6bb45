// Package store is the single source of truth for a calendar session.
//
// Every mutation builds a new *model.CalendarState from the previous one and
// swaps it in under a mutex, so a snapshot handed out earlier is never
// modified and pointer inequality means "something changed".
package store

import (
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"moncal/internal/model"
)

// ErrLastEventType is returned when deleting the only remaining event type.
var ErrLastEventType = errors.New("store: cannot delete the last event type")

// Store holds the current CalendarState.
type Store struct {
	mu      sync.Mutex
	state   *model.CalendarState
	version uint64
	newID   func() string
}

// New creates a store seeded with initial. The catalog must not be empty;
// an empty one is replaced by the default catalog.
func New(initial model.CalendarState) *Store {
	st := initial
	st.Events = slices.Clone(initial.Events)
	st.EventTypes = slices.Clone(initial.EventTypes)
	if len(st.EventTypes) == 0 {
		st.EventTypes = model.DefaultEventTypes()
	}
	if st.Events == nil {
		st.Events = []model.Event{}
	}
	return &Store{
		state: &st,
		newID: uuid.NewString,
	}
}

// Snapshot returns the current state. Callers must not modify it.
func (s *Store) Snapshot() *model.CalendarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version counts state replacements since creation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Current returns the snapshot together with its version.
func (s *Store) Current() (*model.CalendarState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.version
}

// NewID returns a fresh unique identifier for events and types.
func (s *Store) NewID() string {
	return s.newID()
}

// replace runs fn on a shallow copy of the current state and installs it.
// fn must not write through the slices of prev; it replaces them instead.
func (s *Store) replace(fn func(next *model.CalendarState)) *model.CalendarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.state
	fn(&next)
	s.state = &next
	s.version++
	return s.state
}

func (s *Store) SetYear(year int) {
	s.replace(func(next *model.CalendarState) {
		next.Year = year
	})
}

func (s *Store) SetMonth(month int) {
	s.replace(func(next *model.CalendarState) {
		next.Month = month
	})
}

// SetYearMonth sets both fields in a single replacement.
func (s *Store) SetYearMonth(year, month int) {
	s.replace(func(next *model.CalendarState) {
		next.Year = year
		next.Month = month
	})
}

// AddEvent appends a new event with a freshly generated id.
func (s *Store) AddEvent(in model.EventInput) model.Event {
	ev := model.Event{
		ID:     s.newID(),
		Date:   in.Date,
		Title:  in.Title,
		TypeID: in.TypeID,
	}
	s.replace(func(next *model.CalendarState) {
		next.Events = append(slices.Clone(next.Events), ev)
	})
	return ev
}

// UpdateEvent merges patch into the event with the given id. An unknown id
// still produces a new (content-equal) state.
func (s *Store) UpdateEvent(id string, patch model.EventPatch) {
	s.replace(func(next *model.CalendarState) {
		events := make([]model.Event, len(next.Events))
		for i, ev := range next.Events {
			if ev.ID == id {
				if patch.Date != nil {
					ev.Date = *patch.Date
				}
				if patch.Title != nil {
					ev.Title = *patch.Title
				}
				if patch.TypeID != nil {
					ev.TypeID = *patch.TypeID
				}
			}
			events[i] = ev
		}
		next.Events = events
	})
}

func (s *Store) DeleteEvent(id string) {
	s.replace(func(next *model.CalendarState) {
		next.Events = slices.DeleteFunc(slices.Clone(next.Events), func(ev model.Event) bool {
			return ev.ID == id
		})
	})
}

// SetEvents replaces the whole event list.
func (s *Store) SetEvents(events []model.Event) {
	cp := slices.Clone(events)
	if cp == nil {
		cp = []model.Event{}
	}
	s.replace(func(next *model.CalendarState) {
		next.Events = cp
	})
}

// AppendEvents adds events to whatever list is current at commit time.
func (s *Store) AppendEvents(events []model.Event) {
	if len(events) == 0 {
		return
	}
	s.replace(func(next *model.CalendarState) {
		next.Events = append(slices.Clone(next.Events), events...)
	})
}

func (s *Store) AddEventType(in model.EventTypeInput) model.EventType {
	et := model.EventType{
		ID:    s.newID(),
		Name:  in.Name,
		Color: in.Color,
	}
	s.replace(func(next *model.CalendarState) {
		next.EventTypes = append(slices.Clone(next.EventTypes), et)
	})
	return et
}

func (s *Store) UpdateEventType(id string, patch model.EventTypePatch) {
	s.replace(func(next *model.CalendarState) {
		types := make([]model.EventType, len(next.EventTypes))
		for i, et := range next.EventTypes {
			if et.ID == id {
				if patch.Name != nil {
					et.Name = *patch.Name
				}
				if patch.Color != nil {
					et.Color = *patch.Color
				}
			}
			types[i] = et
		}
		next.EventTypes = types
	})
}

// DeleteEventType removes a type. Events referring to it are left alone and
// resolve to the fallback type at display time.
func (s *Store) DeleteEventType(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.EventTypes) <= 1 {
		return ErrLastEventType
	}
	next := *s.state
	next.EventTypes = slices.DeleteFunc(slices.Clone(next.EventTypes), func(et model.EventType) bool {
		return et.ID == id
	})
	s.state = &next
	s.version++
	return nil
}

// SetCommonEvents replaces the monthly memo.
func (s *Store) SetCommonEvents(memo string) {
	s.replace(func(next *model.CalendarState) {
		next.CommonEvents = memo
	})
}

func (s *Store) UpdateTextSettings(patch model.TextSettingsPatch) {
	s.replace(func(next *model.CalendarState) {
		next.TextSettings = next.TextSettings.Apply(patch)
	})
}

func (s *Store) UpdateCalendarSize(size model.CalendarSize) {
	s.replace(func(next *model.CalendarState) {
		next.CalendarSize = size
	})
}

func (s *Store) SetHeaderColor(color string) {
	s.replace(func(next *model.CalendarState) {
		next.HeaderColor = color
	})
}

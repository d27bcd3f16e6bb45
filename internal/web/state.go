package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"moncal/internal/importer"
	appLog "moncal/internal/log"
	"moncal/internal/model"
	"moncal/internal/render"
	"moncal/internal/store"
)

// Calendar size slider bounds, in percent.
const (
	MinWidthPct  = 40
	MaxWidthPct  = 100
	MinHeightPct = 60
	MaxHeightPct = 140
)

const (
	msgLastEventType = "최소 하나의 일정 유형은 있어야 합니다."
	msgBadMonth      = "잘못된 연도 또는 월입니다."
	msgBadColor      = "올바른 색상 형식이 아닙니다."
)

// stateResponse is the full state plus events with their types resolved.
type stateResponse struct {
	*model.CalendarState
	ResolvedEvents []render.EventView `json:"resolvedEvents"`
	Version        uint64             `json:"version"`
}

func (s *Server) writeState(w http.ResponseWriter, status int) {
	st, version := s.store.Current()
	w.Header().Set("ETag", etag(version))
	writeJSON(w, status, stateResponse{
		CalendarState:  st,
		ResolvedEvents: render.ResolveEvents(st.Events, st.EventTypes),
		Version:        version,
	})
}

func etag(version uint64) string {
	return fmt.Sprintf(`"v%d"`, version)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	_, version := s.store.Current()
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag(version) {
		w.Header().Set("ETag", match)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.writeState(w, http.StatusOK)
}

func validMonth(year, month int) bool {
	return year >= 1 && year <= 9999 && month >= 1 && month <= 12
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	st := s.store.Snapshot()
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), st.Year)
	month := parseIntDefault(q.Get("month"), st.Month)
	if !validMonth(year, month) {
		writeError(w, http.StatusBadRequest, msgBadMonth)
		return
	}
	writeJSON(w, http.StatusOK, render.BuildMonthFor(st, year, month, s.now().In(s.loc)))
}

func (s *Server) handleSetMonth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year  *int `json:"year"`
		Month *int `json:"month"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	st := s.store.Snapshot()
	year, month := st.Year, st.Month
	if req.Year != nil {
		year = *req.Year
	}
	if req.Month != nil {
		month = *req.Month
	}
	if !validMonth(year, month) {
		writeError(w, http.StatusBadRequest, msgBadMonth)
		return
	}

	switch {
	case req.Year != nil && req.Month != nil:
		s.store.SetYearMonth(year, month)
	case req.Year != nil:
		s.store.SetYear(year)
	case req.Month != nil:
		s.store.SetMonth(month)
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handlePrevMonth(w http.ResponseWriter, _ *http.Request) {
	s.store.PrevMonth()
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleNextMonth(w http.ResponseWriter, _ *http.Request) {
	s.store.NextMonth()
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Title = strings.TrimSpace(in.Title)

	if errs := importer.ValidateEvent(in, s.store.Snapshot().EventTypes); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	ev := s.store.AddEvent(in)
	appLog.Info("event added", "id", ev.ID, "date", ev.Date)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleSetEvents(w http.ResponseWriter, r *http.Request) {
	var events []model.Event
	if !decodeJSON(w, r, &events) {
		return
	}
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = s.store.NewID()
		}
	}
	s.store.SetEvents(events)
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch model.EventPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}

	st := s.store.Snapshot()
	for _, ev := range st.Events {
		if ev.ID != id {
			continue
		}
		merged := model.EventInput{Date: ev.Date, Title: ev.Title, TypeID: ev.TypeID}
		if patch.Date != nil {
			merged.Date = *patch.Date
		}
		if patch.Title != nil {
			merged.Title = *patch.Title
		}
		if patch.TypeID != nil {
			merged.TypeID = *patch.TypeID
		}
		if errs := importer.ValidateEventUpdate(merged, st.EventTypes, patch.TypeID != nil); len(errs) > 0 {
			writeValidation(w, errs)
			return
		}
		break
	}

	// Unknown ids are a no-op.
	s.store.UpdateEvent(id, patch)
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteEvent(r.PathValue("id"))
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleAddEventType(w http.ResponseWriter, r *http.Request) {
	var in model.EventTypeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)

	if errs := importer.ValidateEventType(in); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	et := s.store.AddEventType(in)
	appLog.Info("event type added", "id", et.ID, "name", et.Name)
	writeJSON(w, http.StatusCreated, et)
}

func (s *Server) handleUpdateEventType(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch model.EventTypePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		patch.Name = &n
	}

	if et, ok := model.FindType(s.store.Snapshot().EventTypes, id); ok {
		merged := model.EventTypeInput{Name: et.Name, Color: et.Color}
		if patch.Name != nil {
			merged.Name = *patch.Name
		}
		if patch.Color != nil {
			merged.Color = *patch.Color
		}
		if errs := importer.ValidateEventType(merged); len(errs) > 0 {
			writeValidation(w, errs)
			return
		}
	}

	s.store.UpdateEventType(id, patch)
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleDeleteEventType(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteEventType(id); err != nil {
		if errors.Is(err, store.ErrLastEventType) {
			writeError(w, http.StatusConflict, msgLastEventType)
			return
		}
		appLog.Error("delete event type failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleSetMemo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Memo string `json:"memo"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.store.SetCommonEvents(req.Memo)
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleTextSettings(w http.ResponseWriter, r *http.Request) {
	var patch model.TextSettingsPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	for _, c := range []*string{patch.EventTextColor, patch.MemoTextColor} {
		if c != nil && !importer.ValidColor(*c) {
			writeError(w, http.StatusBadRequest, msgBadColor)
			return
		}
	}
	s.store.UpdateTextSettings(patch)
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleCalendarSize(w http.ResponseWriter, r *http.Request) {
	var size model.CalendarSize
	if !decodeJSON(w, r, &size) {
		return
	}
	size.Width = clamp(size.Width, MinWidthPct, MaxWidthPct)
	size.Height = clamp(size.Height, MinHeightPct, MaxHeightPct)
	s.store.UpdateCalendarSize(size)
	s.writeState(w, http.StatusOK)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func (s *Server) handleHeaderColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color string `json:"color"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !importer.ValidColor(req.Color) {
		writeError(w, http.StatusBadRequest, msgBadColor)
		return
	}
	s.store.SetHeaderColor(req.Color)
	s.writeState(w, http.StatusOK)
}

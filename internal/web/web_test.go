package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moncal/internal/auth"
	"moncal/internal/config"
	"moncal/internal/model"
	"moncal/internal/store"
)

type stubRaster struct {
	calls int
	html  string
	err   error
}

func (r *stubRaster) Rasterize(_ context.Context, html string) ([]byte, error) {
	r.calls++
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("\x89PNG stub"), nil
}

func newTestServer(t *testing.T) (*Server, *stubRaster) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	st := store.New(cfg.InitialState(time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)))
	raster := &stubRaster{}
	s := NewServer(cfg, st, raster, false)
	s.now = func() time.Time { return time.Date(2025, 8, 10, 9, 0, 0, 0, time.UTC) }
	return s, raster
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var resp stateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("Expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuthProtectsAPI(t *testing.T) {
	s, _ := newTestServer(t)
	hash, err := auth.HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", PasswordHash: hash}
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected /health open, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/state", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.SetBasicAuth("admin", "pw")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid credentials, got %d", rec.Code)
	}
}

func TestStateETag(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/state", nil)
	tag := rec.Header().Get("ETag")
	if tag != `"v0"` {
		t.Fatalf("Expected ETag \"v0\", got %s", tag)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("If-None-Match", tag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("Expected 304, got %d", rec.Code)
	}

	do(t, h, http.MethodPut, "/api/memo", map[string]string{"memo": "월말 결산"})
	rec = do(t, h, http.MethodGet, "/api/state", nil)
	if rec.Header().Get("ETag") == tag {
		t.Error("Expected ETag to change after a mutation")
	}
	if got := decodeState(t, rec); got.CommonEvents != "월말 결산" {
		t.Errorf("Expected memo to be stored, got %q", got.CommonEvents)
	}
}

func TestAddEventValidation(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/events", model.EventInput{Date: "2025-13-01", Title: " ", TypeID: "1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var verr struct{ Errors []string }
	_ = json.NewDecoder(rec.Body).Decode(&verr)
	if len(verr.Errors) != 2 {
		t.Errorf("Expected 2 validation errors, got %v", verr.Errors)
	}

	rec = do(t, h, http.MethodPost, "/api/events", model.EventInput{Date: "2025-08-15", Title: " 킥오프 ", TypeID: "2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var ev model.Event
	_ = json.NewDecoder(rec.Body).Decode(&ev)
	if ev.ID == "" || ev.Title != "킥오프" {
		t.Errorf("Unexpected event: %+v", ev)
	}

	rec = do(t, h, http.MethodPatch, "/api/events/"+ev.ID, map[string]string{"title": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty title patch, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPatch, "/api/events/"+ev.ID, map[string]string{"date": "2025-08-16"})
	if got := decodeState(t, rec); got.Events[0].Date != "2025-08-16" {
		t.Errorf("Expected patched date, got %+v", got.Events)
	}

	rec = do(t, h, http.MethodDelete, "/api/events/missing", nil)
	if rec.Code != http.StatusOK || len(decodeState(t, rec).Events) != 1 {
		t.Error("Deleting an unknown id should be a no-op")
	}
	rec = do(t, h, http.MethodDelete, "/api/events/"+ev.ID, nil)
	if len(decodeState(t, rec).Events) != 0 {
		t.Error("Expected event to be deleted")
	}
}

func TestDeleteLastEventTypeConflict(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, id := range []string{"1", "2", "3"} {
		if rec := do(t, h, http.MethodDelete, "/api/event-types/"+id, nil); rec.Code != http.StatusOK {
			t.Fatalf("Expected 200 deleting %s, got %d", id, rec.Code)
		}
	}

	before := s.store.Snapshot()
	rec := do(t, h, http.MethodDelete, "/api/event-types/4", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgLastEventType) {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
	if s.store.Snapshot() != before {
		t.Error("State must be unchanged after a refused delete")
	}
}

func TestPatchEventAfterTypeDeleted(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/events", model.EventInput{Date: "2025-08-05", Title: "출장", TypeID: "2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	var ev model.Event
	_ = json.NewDecoder(rec.Body).Decode(&ev)

	if rec := do(t, h, http.MethodDelete, "/api/event-types/2", nil); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 deleting type, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPatch, "/api/events/"+ev.ID, map[string]string{"title": "해외 출장"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for a title-only patch, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeState(t, rec)
	if len(got.Events) != 1 || got.Events[0].Title != "해외 출장" || got.Events[0].TypeID != "2" {
		t.Errorf("Unexpected events: %+v", got.Events)
	}

	rec = do(t, h, http.MethodPatch, "/api/events/"+ev.ID, map[string]string{"typeId": "2"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when setting a deleted type, got %d", rec.Code)
	}
}

func TestEventTypeCreateAndPatch(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/event-types", model.EventTypeInput{Name: "회의", Color: "red"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad color, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/event-types", model.EventTypeInput{Name: "회의", Color: "#8b5cf6"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	var et model.EventType
	_ = json.NewDecoder(rec.Body).Decode(&et)

	rec = do(t, h, http.MethodPatch, "/api/event-types/"+et.ID, map[string]string{"name": "미팅"})
	got := decodeState(t, rec)
	if len(got.EventTypes) != 5 || got.EventTypes[4].Name != "미팅" || got.EventTypes[4].Color != "#8b5cf6" {
		t.Errorf("Unexpected catalog: %+v", got.EventTypes)
	}
}

func TestMonthNavigation(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPut, "/api/month", map[string]int{"year": 2025, "month": 13})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for month 13, got %d", rec.Code)
	}

	do(t, h, http.MethodPut, "/api/month", map[string]int{"year": 2025, "month": 12})
	rec = do(t, h, http.MethodPost, "/api/month/next", nil)
	if got := decodeState(t, rec); got.Year != 2026 || got.Month != 1 {
		t.Errorf("Expected 2026-01, got %d-%d", got.Year, got.Month)
	}
	rec = do(t, h, http.MethodPost, "/api/month/prev", nil)
	if got := decodeState(t, rec); got.Year != 2025 || got.Month != 12 {
		t.Errorf("Expected 2025-12, got %d-%d", got.Year, got.Month)
	}

	rec = do(t, h, http.MethodGet, "/api/month?year=2015&month=2", nil)
	var view struct {
		Title string
		Cells []json.RawMessage
	}
	_ = json.NewDecoder(rec.Body).Decode(&view)
	if view.Title != "2015년 2월" || len(view.Cells) != 42 {
		t.Errorf("Unexpected month view: %q with %d cells", view.Title, len(view.Cells))
	}
}

func TestSettings(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPut, "/api/settings/size", model.CalendarSize{Width: 10, Height: 500})
	if got := decodeState(t, rec).CalendarSize; got.Width != MinWidthPct || got.Height != MaxHeightPct {
		t.Errorf("Expected clamped size, got %+v", got)
	}

	rec = do(t, h, http.MethodPut, "/api/settings/header-color", map[string]string{"color": "blue"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad header color, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPut, "/api/settings/header-color", map[string]string{"color": "#112233"})
	if got := decodeState(t, rec).HeaderColor; got != "#112233" {
		t.Errorf("Expected #112233, got %s", got)
	}

	rec = do(t, h, http.MethodPatch, "/api/settings/text", map[string]string{"eventFontSize": "10px"})
	ts := decodeState(t, rec).TextSettings
	if ts.EventFontSize != "10px" || ts.MemoFontSize != "14px" {
		t.Errorf("Expected merged text settings, got %+v", ts)
	}
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportTemplateWorkbook(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/template.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for template, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, templateFilename) {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	workbook := rec.Body.Bytes()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, templateFilename, workbook))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp importResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Added != 4 || len(resp.Errors) != 0 {
		t.Errorf("Expected 4 added without errors, got %+v", resp)
	}
	if resp.Message != "4개의 일정이 추가되었습니다." {
		t.Errorf("Unexpected message %q", resp.Message)
	}

	events := s.store.Snapshot().Events
	if len(events) != 4 || events[3].Title != "IPO 청약 시작" || events[3].TypeID != "4" {
		t.Errorf("Unexpected events: %+v", events)
	}
}

func TestImportICSAndUnsupported(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	ics := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:a\r\nDTSTAMP:20250701T000000Z\r\n" +
		"DTSTART;VALUE=DATE:20250805\r\nSUMMARY:청약 마감\r\nCATEGORIES:청약\r\n" +
		"END:VEVENT\r\nEND:VCALENDAR\r\n"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "feed.ics", []byte(ics)))
	var resp importResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || resp.Added != 1 {
		t.Fatalf("Expected 1 event imported, got %d %+v", rec.Code, resp)
	}
	if ev := s.store.Snapshot().Events[0]; ev.Date != "2025-08-05" || ev.TypeID != "4" {
		t.Errorf("Unexpected event %+v", ev)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("hello")))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), msgUnsupported) {
		t.Errorf("Expected unsupported format error, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "broken.xlsx", []byte("not a zip")))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), msgReadFailed) {
		t.Errorf("Expected read failure, got %d %s", rec.Code, rec.Body.String())
	}
	if len(s.store.Snapshot().Events) != 1 {
		t.Error("Failed imports must not change the state")
	}
}

func TestExportPNG(t *testing.T) {
	s, raster := newTestServer(t)
	h := s.Handler()
	do(t, h, http.MethodPost, "/api/events", model.EventInput{Date: "2025-08-15", Title: "월간 매출 목표 달성", TypeID: "2"})

	rec := do(t, h, http.MethodGet, "/api/export.png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="calendar-2025-08.png"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if rec.Body.String() != "\x89PNG stub" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
	if !strings.Contains(raster.html, "월간 매출 목표 달성") || !strings.Contains(raster.html, `data-ready="true"`) {
		t.Error("Rasterizer should receive the rendered month page")
	}

	before := s.store.Snapshot()
	raster.err = errors.New("chromium crashed")
	rec = do(t, h, http.MethodGet, "/api/export.png", nil)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), msgExportFailed) {
		t.Errorf("Expected 500 with export message, got %d %s", rec.Code, rec.Body.String())
	}
	if s.store.Snapshot() != before {
		t.Error("Export failure must not change the state")
	}
}

func TestExportICSAndCalendarPage(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()
	do(t, h, http.MethodPost, "/api/events", model.EventInput{Date: "2025-08-20", Title: "우수 직원 포상", TypeID: "3"})

	rec := do(t, h, http.MethodGet, "/api/export.ics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "SUMMARY:우수 직원 포상") {
		t.Errorf("Unexpected ICS export: %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "calendar-2025-08.ics") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	rec = do(t, h, http.MethodGet, "/calendar", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="calendar-container"`) {
		t.Errorf("Unexpected calendar page: %d", rec.Code)
	}
}

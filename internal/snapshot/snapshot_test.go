package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"moncal/internal/model"
)

type fixedSource struct{ st *model.CalendarState }

func (f fixedSource) Snapshot() *model.CalendarState { return f.st }

type stubRaster struct {
	html string
	err  error
}

func (r *stubRaster) Rasterize(_ context.Context, html string) ([]byte, error) {
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("\x89PNG fake"), nil
}

func testState() *model.CalendarState {
	return &model.CalendarState{
		Year:         2025,
		Month:        8,
		Events:       []model.Event{{ID: "e1", Date: "2025-08-01", Title: "프로젝트 킥오프", TypeID: "1"}},
		EventTypes:   model.DefaultEventTypes(),
		TextSettings: model.DefaultTextSettings(),
		CalendarSize: model.DefaultCalendarSize(),
		HeaderColor:  model.DefaultHeaderColor,
	}
}

func TestRunOnceWritesMonthFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	raster := &stubRaster{}
	s := New(fixedSource{testState()}, raster, dir, time.UTC, time.Second)
	s.now = func() time.Time { return time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC) }

	path, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	if filepath.Base(path) != "calendar-2025-08.png" {
		t.Errorf("Expected calendar-2025-08.png, got %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected file to exist: %v", err)
	}
	if string(data) != "\x89PNG fake" {
		t.Errorf("Unexpected file content %q", data)
	}
	if !strings.Contains(raster.html, "프로젝트 킥오프") {
		t.Error("Expected rendered HTML to include the event title")
	}
}

func TestRunOnceRasterizerError(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	s := New(fixedSource{testState()}, &stubRaster{err: boom}, dir, time.UTC, time.Second)

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped rasterizer error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no files on failure, got %d", len(entries))
	}
}

func TestStart(t *testing.T) {
	s := New(fixedSource{testState()}, &stubRaster{}, t.TempDir(), time.UTC, time.Second)

	if err := s.Start(""); err != nil {
		t.Errorf("Empty cron expression should disable the scheduler, got %v", err)
	}
	if err := s.Start("not a cron"); err == nil {
		t.Error("Expected error for invalid cron spec")
	}
	if err := s.Start("0 6 * * *"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := s.Start("0 6 * * *"); err == nil {
		t.Error("Expected error when started twice")
	}
	s.Stop()
	s.Stop()
}

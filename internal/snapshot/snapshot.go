// Package snapshot periodically exports the displayed month to a PNG file.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"moncal/internal/capture"
	"moncal/internal/config"
	appLog "moncal/internal/log"
	"moncal/internal/model"
	"moncal/internal/render"
)

// Source yields the state to export. *store.Store satisfies it.
type Source interface {
	Snapshot() *model.CalendarState
}

// Scheduler writes <Dir>/calendar-YYYY-MM.png on a cron schedule.
type Scheduler struct {
	src     Source
	raster  capture.Rasterizer
	dir     string
	loc     *time.Location
	timeout time.Duration

	// now is replaceable in tests.
	now func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a Scheduler. loc decides "today" in the rendered page and the
// cron time zone; nil means time.Local.
func New(src Source, raster capture.Rasterizer, dir string, loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = time.Duration(capture.DefaultTimeoutSec) * time.Second
	}
	return &Scheduler{
		src:     src,
		raster:  raster,
		dir:     dir,
		loc:     loc,
		timeout: timeout,
		now:     time.Now,
	}
}

// Start schedules exports with a standard 5-field cron spec. An empty spec
// leaves the scheduler idle.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		appLog.Info("snapshot scheduler disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("snapshot: scheduler already started")
	}

	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("snapshot: invalid cron %q: %w", spec, err)
	}
	c.Start()
	s.cron = c

	appLog.Info("snapshot scheduler started", "cron", spec, "dir", s.dir)
	return nil
}

// Stop halts the schedule and waits for a running export to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	appLog.Info("snapshot scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	path, err := s.RunOnce(ctx)
	if err != nil {
		appLog.Error("snapshot export failed", err)
		return
	}
	appLog.Info("snapshot exported", "path", path)
}

// RunOnce renders the current month and writes it atomically. It returns
// the written path.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	st := s.src.Snapshot()
	view := render.BuildMonth(st, s.now().In(s.loc))

	var html bytes.Buffer
	if err := render.HTML(&html, view); err != nil {
		return "", fmt.Errorf("snapshot: render: %w", err)
	}

	png, err := s.raster.Rasterize(ctx, html.String())
	if err != nil {
		return "", fmt.Errorf("snapshot: rasterize: %w", err)
	}

	path := filepath.Join(s.dir, capture.Filename(st.Year, st.Month))
	if err := config.WriteFileAtomic(path, png, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return path, nil
}

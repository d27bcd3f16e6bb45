package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"moncal/internal/convert"
)

// Default capture parameters. The viewport only needs to fit the calendar
// at its largest size; the screenshot is clipped to the container.
const (
	DefaultWidth      = 1200
	DefaultHeight     = 1600
	DefaultScale      = 3.0
	DefaultTimeoutSec = 30

	// ContainerSelector is the element captured from the rendered page.
	ContainerSelector = "#calendar-container"
	readySelector     = `[data-ready="true"]`
)

// ErrNoContent is returned when no HTML was given.
var ErrNoContent = errors.New("capture: HTML is required")

// Rasterizer renders a calendar page to PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, html string) ([]byte, error)
}

// CaptureOptions defines parameters for a Chromium-based capture.
type CaptureOptions struct {
	// HTML is the rendered calendar page, loaded into a blank tab.
	HTML string

	// Width and Height are the viewport in CSS pixels; zero uses the defaults.
	Width  int
	Height int

	// Scale is the device pixel ratio, clamped to [2,3]. Zero uses DefaultScale.
	Scale float64

	// Timeout bounds the whole capture; zero uses DefaultTimeoutSec.
	Timeout time.Duration
}

func (o *CaptureOptions) normalize() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	switch {
	case o.Scale == 0:
		o.Scale = DefaultScale
	case o.Scale < 2:
		o.Scale = 2
	case o.Scale > 3:
		o.Scale = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
}

// CaptureCalendarPNG launches headless Chromium via chromedp, loads the
// calendar page, waits for the root element to report data-ready="true" and
// screenshots #calendar-container at opts.Scale. The result is flattened
// onto an opaque white background.
func CaptureCalendarPNG(parentCtx context.Context, opts CaptureOptions) ([]byte, error) {
	if opts.HTML == "" {
		return nil, ErrNoContent
	}
	opts.normalize()

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height), chromedp.EmulateScale(opts.Scale)),
		chromedp.Navigate("about:blank"),
		setDocumentContent(opts.HTML),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Give web fonts a moment to paint.
		chromedp.Sleep(300*time.Millisecond),
		chromedp.Screenshot(ContainerSelector, &png, chromedp.ByQuery),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	out, err := convert.FlattenPNG(png, convert.White)
	if err != nil {
		return nil, fmt.Errorf("capture: flatten: %w", err)
	}
	return out, nil
}

func setDocumentContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	})
}

// Chromium is the Rasterizer backed by headless Chromium.
type Chromium struct {
	Width   int
	Height  int
	Scale   float64
	Timeout time.Duration
}

func (c Chromium) Rasterize(ctx context.Context, html string) ([]byte, error) {
	return CaptureCalendarPNG(ctx, CaptureOptions{
		HTML:    html,
		Width:   c.Width,
		Height:  c.Height,
		Scale:   c.Scale,
		Timeout: c.Timeout,
	})
}

// Filename is the download name for a month's image, e.g. calendar-2025-08.png.
func Filename(year, month int) string {
	return fmt.Sprintf("calendar-%d-%02d.png", year, month)
}

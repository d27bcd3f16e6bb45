package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	if got := Filename(2025, 8); got != "calendar-2025-08.png" {
		t.Errorf("Expected calendar-2025-08.png, got %s", got)
	}
	if got := Filename(2025, 12); got != "calendar-2025-12.png" {
		t.Errorf("Expected calendar-2025-12.png, got %s", got)
	}
}

func TestNormalizeClampsScale(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, DefaultScale},
		{1, 2},
		{2.5, 2.5},
		{4, 3},
	}
	for _, tt := range tests {
		o := CaptureOptions{Scale: tt.in}
		o.normalize()
		if o.Scale != tt.want {
			t.Errorf("Scale %v: expected %v, got %v", tt.in, tt.want, o.Scale)
		}
		if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeoutSec*time.Second {
			t.Errorf("Expected defaults, got %+v", o)
		}
	}
}

func TestCaptureRequiresContent(t *testing.T) {
	_, err := CaptureCalendarPNG(context.Background(), CaptureOptions{})
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"moncal/internal/model"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// BasicAuthConfig holds HTTP Basic Auth credentials for the editor.
// PasswordHash is an Argon2id hash produced by `moncal hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"-"`
}

// CaptureConfig controls the headless Chromium export.
type CaptureConfig struct {
	// Width and Height are the browser viewport in CSS pixels.
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// Scale is the device pixel ratio of the exported PNG (2 or 3).
	Scale float64 `yaml:"scale" json:"scale"`

	// TimeoutSec bounds one capture.
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// Timeout returns TimeoutSec as a duration.
func (c CaptureConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SnapshotConfig schedules periodic PNG exports of the displayed month.
type SnapshotConfig struct {
	// Cron is a cron-style schedule string (e.g. "0 6 * * *"). Empty disables
	// the scheduler.
	Cron string `yaml:"cron" json:"cron"`

	// Dir receives calendar-YYYY-MM.png files.
	Dir string `yaml:"dir" json:"dir"`
}

// DefaultsConfig seeds the calendar state at startup.
type DefaultsConfig struct {
	HeaderColor  string             `yaml:"header_color" json:"header_color"`
	EventTypes   []model.EventType  `yaml:"event_types" json:"event_types"`
	TextSettings model.TextSettings `yaml:"text_settings" json:"text_settings"`
	CalendarSize model.CalendarSize `yaml:"calendar_size" json:"calendar_size"`
}

// ImportConfig limits uploads.
type ImportConfig struct {
	MaxUploadMB int `yaml:"max_upload_mb" json:"max_upload_mb"`
}

// MaxUploadBytes returns MaxUploadMB in bytes.
func (c ImportConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the editor API and views.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for "today" and ICS day mapping
	// (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Capture  CaptureConfig  `yaml:"capture" json:"capture"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
	Import   ImportConfig   `yaml:"import" json:"import"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "Asia/Seoul",
		LogLevel: "info",
		Capture: CaptureConfig{
			Width:      1200,
			Height:     1600,
			Scale:      3,
			TimeoutSec: 30,
		},
		Snapshot: SnapshotConfig{
			Cron: "",
			Dir:  "snapshots",
		},
		Import: ImportConfig{MaxUploadMB: 10},
	}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Seoul"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}

	if c.Capture.Width <= 0 {
		c.Capture.Width = 1200
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 1600
	}
	// Export density is 2x-3x.
	switch {
	case c.Capture.Scale == 0:
		c.Capture.Scale = 3
	case c.Capture.Scale < 2:
		c.Capture.Scale = 2
	case c.Capture.Scale > 3:
		c.Capture.Scale = 3
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = 30
	}

	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = "snapshots"
	}

	if c.Defaults.HeaderColor == "" {
		c.Defaults.HeaderColor = model.DefaultHeaderColor
	}
	if len(c.Defaults.EventTypes) == 0 {
		c.Defaults.EventTypes = model.DefaultEventTypes()
	}
	c.Defaults.TextSettings = fillText(c.Defaults.TextSettings)
	if c.Defaults.CalendarSize.Width <= 0 || c.Defaults.CalendarSize.Height <= 0 {
		c.Defaults.CalendarSize = model.DefaultCalendarSize()
	}

	if c.Import.MaxUploadMB <= 0 {
		c.Import.MaxUploadMB = 10
	}
}

func fillText(t model.TextSettings) model.TextSettings {
	d := model.DefaultTextSettings()
	if t.FontFamily == "" {
		t.FontFamily = d.FontFamily
	}
	if t.EventFontSize == "" {
		t.EventFontSize = d.EventFontSize
	}
	if t.EventTextColor == "" {
		t.EventTextColor = d.EventTextColor
	}
	if t.MemoFontSize == "" {
		t.MemoFontSize = d.MemoFontSize
	}
	if t.MemoTextColor == "" {
		t.MemoTextColor = d.MemoTextColor
	}
	return t
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// InitialState builds the startup calendar state: now's month, no events and
// the configured defaults.
func (c *Config) InitialState(now time.Time) model.CalendarState {
	now = now.In(c.Location())
	types := make([]model.EventType, len(c.Defaults.EventTypes))
	copy(types, c.Defaults.EventTypes)
	return model.CalendarState{
		Year:         now.Year(),
		Month:        int(now.Month()),
		Events:       []model.Event{},
		EventTypes:   types,
		CommonEvents: "",
		TextSettings: c.Defaults.TextSettings,
		CalendarSize: c.Defaults.CalendarSize,
		HeaderColor:  c.Defaults.HeaderColor,
	}
}

// AuthEnabled reports whether Basic Auth is fully configured.
func (c *Config) AuthEnabled() bool {
	// 빈 사용자명 또는 해시가 설정된 경우에는 비활성화로 취급한다.
	return c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.PasswordHash != ""
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data next to path and renames it into place, creating
// the parent directory (0700) if needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".moncal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

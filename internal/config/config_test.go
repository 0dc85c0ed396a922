package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Session.TickInterval.Std() != time.Second {
		t.Errorf("TickInterval = %v, want 1s", cfg.Session.TickInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"width", func(c *Config) { c.Window.Width = 0 }, "window.width"},
		{"height", func(c *Config) { c.Window.Height = -1 }, "window.height"},
		{"notify buffer", func(c *Config) { c.Session.NotifyBuffer = 0 }, "session.notify_buffer"},
		{"frame interval", func(c *Config) { c.Session.FrameInterval = -1 }, "session.frame_interval"},
		{"tick interval", func(c *Config) { c.Session.TickInterval = 0 }, "session.tick_interval"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"call timeout", func(c *Config) { c.Script.CallTimeout = -5 }, "script.call_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Error("expected errors.Is(err, ErrValidationFailed)")
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"1.0.0", true},
		{"1.0", true},
		{"1.4.2", true},
		{"0.9.0", false},
		{"2.0.0", false},
		{"banana", false},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Version = tt.version
		err := cfg.Validate()
		if tt.ok && err != nil {
			t.Errorf("version %q: unexpected error %v", tt.version, err)
		}
		if !tt.ok && !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("version %q: expected ErrUnsupportedVersion, got %v", tt.version, err)
		}
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "widgetbus.toml", `
version = "1.1.0"

[window]
title = "from toml"

[session]
notify_buffer = 8
tick_interval = "250ms"

[script]
path = "hello.lua"
watch = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Title != "from toml" {
		t.Errorf("Title = %q", cfg.Window.Title)
	}
	if cfg.Session.NotifyBuffer != 8 {
		t.Errorf("NotifyBuffer = %d, want 8", cfg.Session.NotifyBuffer)
	}
	if cfg.Session.TickInterval.Std() != 250*time.Millisecond {
		t.Errorf("TickInterval = %v, want 250ms", cfg.Session.TickInterval)
	}
	if cfg.Script.Path != "hello.lua" || !cfg.Script.Watch {
		t.Errorf("Script = %+v", cfg.Script)
	}
	// untouched settings keep their defaults
	if cfg.Window.Width != 80 {
		t.Errorf("Width = %d, want default 80", cfg.Window.Width)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "widgetbus.yml", `
version: "1.0.0"
window:
  title: from yaml
  width: 40
session:
  frame_interval: 5ms
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Title != "from yaml" || cfg.Window.Width != 40 {
		t.Errorf("Window = %+v", cfg.Window)
	}
	if cfg.Session.FrameInterval.Std() != 5*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 5ms", cfg.Session.FrameInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load of a missing file: %v", err)
	}
	if cfg.Window.Title != Default().Window.Title {
		t.Errorf("expected defaults, got %+v", cfg.Window)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "widgetbus.ini", "x=1"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	_, err = Load(writeFile(t, dir, "bad.toml", "[window\ntitle ="))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Format != "toml" {
		t.Errorf("Format = %q", perr.Format)
	}

	_, err = Load(writeFile(t, dir, "old.toml", `version = "3.0.0"`))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}

	_, err = Load(writeFile(t, dir, "dur.yaml", "session:\n  tick_interval: soon\n"))
	if !errors.As(err, &perr) {
		t.Errorf("expected *ParseError for a bad duration, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WIDGETBUS_WINDOW_TITLE", "from env")
	t.Setenv("WIDGETBUS_SESSION_NOTIFY_BUFFER", "256")
	t.Setenv("WIDGETBUS_SESSION_TICK_INTERVAL", "2s")
	t.Setenv("WIDGETBUS_SESSION_HEADLESS", "true")

	path := writeFile(t, t.TempDir(), "widgetbus.toml", "[window]\ntitle = \"from file\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Title != "from env" {
		t.Errorf("Title = %q, env should win over the file", cfg.Window.Title)
	}
	if cfg.Session.NotifyBuffer != 256 {
		t.Errorf("NotifyBuffer = %d", cfg.Session.NotifyBuffer)
	}
	if cfg.Session.TickInterval.Std() != 2*time.Second {
		t.Errorf("TickInterval = %v", cfg.Session.TickInterval)
	}
	if !cfg.Session.Headless {
		t.Error("Headless not applied")
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("WIDGETBUS_WINDOW_WIDTH", "wide")
	cfg := Default()
	if err := ApplyEnv(&cfg); err == nil {
		t.Error("expected an error for a non-numeric width")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "WIDGETBUS_LOGGING_LEVEL=warn\n")
	t.Setenv("WIDGETBUS_LOGGING_LEVEL", "")
	os.Unsetenv("WIDGETBUS_LOGGING_LEVEL")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should not fail: %v", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Errorf("empty path should not fail: %v", err)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("d = %v", d)
	}
	text, _ := d.MarshalText()
	if string(text) != "1m30s" {
		t.Errorf("MarshalText = %q", text)
	}
	if err := d.UnmarshalText([]byte("later")); err == nil {
		t.Error("expected an error")
	}
}

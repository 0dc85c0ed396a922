package config

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/dshills/widgetbus/internal/logging"
)

// SchemaConstraint is the range of config schema versions this build reads.
const SchemaConstraint = ">= 1.0.0, < 2.0.0"

// Config is the complete session configuration.
type Config struct {
	// Version is the config schema version.
	Version string `toml:"version" yaml:"version" env:"VERSION"`

	Window  WindowConfig  `toml:"window" yaml:"window" envPrefix:"WINDOW_"`
	Session SessionConfig `toml:"session" yaml:"session" envPrefix:"SESSION_"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" envPrefix:"LOGGING_"`
	Script  ScriptConfig  `toml:"script" yaml:"script" envPrefix:"SCRIPT_"`
}

// WindowConfig describes the window the session draws into.
type WindowConfig struct {
	Title string `toml:"title" yaml:"title" env:"TITLE"`
	// Width and Height size the simulated screen in headless mode.
	Width  int `toml:"width" yaml:"width" env:"WIDTH"`
	Height int `toml:"height" yaml:"height" env:"HEIGHT"`
}

// SessionConfig tunes the message loop.
type SessionConfig struct {
	// NotifyBuffer is the capacity of the shell request channel.
	NotifyBuffer int `toml:"notify_buffer" yaml:"notify_buffer" env:"NOTIFY_BUFFER"`
	// FrameInterval is the minimum time between two renders.
	FrameInterval Duration `toml:"frame_interval" yaml:"frame_interval" env:"FRAME_INTERVAL"`
	// TickInterval is the period of the clock producer.
	TickInterval Duration `toml:"tick_interval" yaml:"tick_interval" env:"TICK_INTERVAL"`
	// Headless runs on a simulated screen.
	Headless bool `toml:"headless" yaml:"headless" env:"HEADLESS"`
}

// LoggingConfig configures the session logger.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level" env:"LEVEL"`
	// File receives log output. Empty means stderr.
	File string `toml:"file" yaml:"file" env:"FILE"`
}

// ScriptConfig configures the Lua script engine.
type ScriptConfig struct {
	// Path is the script loaded at startup. Empty disables scripting.
	Path string `toml:"path" yaml:"path" env:"PATH"`
	// Watch reloads the script when it changes on disk.
	Watch bool `toml:"watch" yaml:"watch" env:"WATCH"`
	// CallTimeout bounds a single script call. Zero means unlimited.
	CallTimeout Duration `toml:"call_timeout" yaml:"call_timeout" env:"CALL_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version: "1.0.0",
		Window: WindowConfig{
			Title:  "widgetbus",
			Width:  80,
			Height: 24,
		},
		Session: SessionConfig{
			NotifyBuffer:  64,
			FrameInterval: Duration(16 * time.Millisecond),
			TickInterval:  Duration(time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Script: ScriptConfig{
			CallTimeout: Duration(time.Second),
		},
	}
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if err := checkVersion(c.Version); err != nil {
		return err
	}
	if c.Window.Width <= 0 {
		return &ValidationError{Field: "window.width", Message: "must be positive"}
	}
	if c.Window.Height <= 0 {
		return &ValidationError{Field: "window.height", Message: "must be positive"}
	}
	if c.Session.NotifyBuffer < 1 {
		return &ValidationError{Field: "session.notify_buffer", Message: "must be at least 1"}
	}
	if c.Session.FrameInterval < 0 {
		return &ValidationError{Field: "session.frame_interval", Message: "must not be negative"}
	}
	if c.Session.TickInterval <= 0 {
		return &ValidationError{Field: "session.tick_interval", Message: "must be positive"}
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return &ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if c.Script.CallTimeout < 0 {
		return &ValidationError{Field: "script.call_timeout", Message: "must not be negative"}
	}
	return nil
}

func checkVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, v, err)
	}
	constraint, err := semver.NewConstraint(SchemaConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, version, SchemaConstraint)
	}
	return nil
}

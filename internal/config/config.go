// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/viewer"
)

// Config holds all docshell configuration.
type Config struct {
	Viewer    Viewer    `yaml:"viewer"`
	Documents Documents `yaml:"documents"`
	Log       Log       `yaml:"log"`
	Shell     Shell     `yaml:"shell"`
}

// Viewer holds engine session timings and the base location for relative
// document references.
type Viewer struct {
	GateTimeout       time.Duration `yaml:"gate_timeout"`
	FrameInterval     time.Duration `yaml:"frame_interval"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	ReadyPollInterval time.Duration `yaml:"ready_poll_interval"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout"`
	ReadyFallback     time.Duration `yaml:"ready_fallback"`
	BaseLocation      string        `yaml:"base_location"` // URL or directory
}

// Documents holds the default document for each mode.
type Documents struct {
	Viewer      string `yaml:"viewer"`
	Annotations string `yaml:"annotations"`
	Forms       string `yaml:"forms"`
	Editor      string `yaml:"editor"`
}

// Log holds logger settings.
type Log struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	File  string `yaml:"file"`  // Used while the shell owns the terminal
}

// Shell holds interactive shell settings.
type Shell struct {
	StartMode        string `yaml:"start_mode"` // Empty selects no mode
	SidebarCollapsed bool   `yaml:"sidebar_collapsed"`
	StateDir         string `yaml:"state_dir"` // Saved page positions; empty disables
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := viewer.DefaultTimings()
	return Config{
		Viewer: Viewer{
			GateTimeout:       t.GateTimeout,
			FrameInterval:     t.FrameInterval,
			SettleDelay:       t.SettleDelay,
			ReadyPollInterval: t.ReadyPollInterval,
			ReadyTimeout:      t.ReadyTimeout,
			ReadyFallback:     t.ReadyFallback,
			BaseLocation:      ".",
		},
		Documents: Documents{
			Viewer:      "/blob.pdf",
			Annotations: "/document.pdf",
			Forms:       "/form.pdf",
			Editor:      "/editor.pdf",
		},
		Log: Log{
			Level: "info",
			File:  ".docshell/docshell.log",
		},
		Shell: Shell{
			StateDir: ".docshell/state",
		},
	}
}

// Timings converts the viewer section to session timings.
func (c *Config) Timings() viewer.Timings {
	return viewer.Timings{
		GateTimeout:       c.Viewer.GateTimeout,
		FrameInterval:     c.Viewer.FrameInterval,
		SettleDelay:       c.Viewer.SettleDelay,
		ReadyPollInterval: c.Viewer.ReadyPollInterval,
		ReadyTimeout:      c.Viewer.ReadyTimeout,
		ReadyFallback:     c.Viewer.ReadyFallback,
	}
}

// DocumentFor returns the default document reference for m. No mode uses
// the viewer document.
func (c *Config) DocumentFor(m mode.Mode) string {
	switch m {
	case mode.Annotations:
		return c.Documents.Annotations
	case mode.Forms:
		return c.Documents.Forms
	case mode.Editor:
		return c.Documents.Editor
	}
	return c.Documents.Viewer
}

// StartMode returns the parsed shell start mode.
func (c *Config) StartMode() (mode.Mode, error) {
	return mode.Parse(c.Shell.StartMode)
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"viewer.gate_timeout", c.Viewer.GateTimeout},
		{"viewer.frame_interval", c.Viewer.FrameInterval},
		{"viewer.ready_poll_interval", c.Viewer.ReadyPollInterval},
		{"viewer.ready_timeout", c.Viewer.ReadyTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %v", p.name, p.d)
		}
	}
	if c.Viewer.SettleDelay < 0 {
		return fmt.Errorf("config: viewer.settle_delay must be non-negative, got %v", c.Viewer.SettleDelay)
	}
	if c.Viewer.ReadyFallback < 0 {
		return fmt.Errorf("config: viewer.ready_fallback must be non-negative, got %v", c.Viewer.ReadyFallback)
	}
	for _, m := range mode.All() {
		if strings.TrimSpace(c.DocumentFor(m)) == "" {
			return fmt.Errorf("config: documents.%s cannot be empty", strings.ToLower(string(m)))
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if _, err := c.StartMode(); err != nil {
		return fmt.Errorf("config: shell.start_mode: %w", err)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: DOCSHELL_BASE_LOCATION, DOCSHELL_GATE_TIMEOUT,
// DOCSHELL_READY_TIMEOUT, DOCSHELL_LOG_LEVEL, DOCSHELL_LOG_FILE,
// DOCSHELL_START_MODE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DOCSHELL_BASE_LOCATION"); v != "" {
		c.Viewer.BaseLocation = v
	}
	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{"DOCSHELL_GATE_TIMEOUT", &c.Viewer.GateTimeout},
		{"DOCSHELL_READY_TIMEOUT", &c.Viewer.ReadyTimeout},
	} {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", d.env, v, err)
		}
		*d.dst = parsed
	}
	if v := os.Getenv("DOCSHELL_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("DOCSHELL_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("DOCSHELL_START_MODE"); v != "" {
		c.Shell.StartMode = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Viewer    *rawViewer    `yaml:"viewer"`
	Documents *rawDocuments `yaml:"documents"`
	Log       *rawLog       `yaml:"log"`
	Shell     *rawShell     `yaml:"shell"`
}

type rawViewer struct {
	GateTimeout       *time.Duration `yaml:"gate_timeout"`
	FrameInterval     *time.Duration `yaml:"frame_interval"`
	SettleDelay       *time.Duration `yaml:"settle_delay"`
	ReadyPollInterval *time.Duration `yaml:"ready_poll_interval"`
	ReadyTimeout      *time.Duration `yaml:"ready_timeout"`
	ReadyFallback     *time.Duration `yaml:"ready_fallback"`
	BaseLocation      *string        `yaml:"base_location"`
}

type rawDocuments struct {
	Viewer      *string `yaml:"viewer"`
	Annotations *string `yaml:"annotations"`
	Forms       *string `yaml:"forms"`
	Editor      *string `yaml:"editor"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

type rawShell struct {
	StartMode        *string `yaml:"start_mode"`
	SidebarCollapsed *bool   `yaml:"sidebar_collapsed"`
	StateDir         *string `yaml:"state_dir"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if v := layer.Viewer; v != nil {
		set(&c.Viewer.GateTimeout, v.GateTimeout)
		set(&c.Viewer.FrameInterval, v.FrameInterval)
		set(&c.Viewer.SettleDelay, v.SettleDelay)
		set(&c.Viewer.ReadyPollInterval, v.ReadyPollInterval)
		set(&c.Viewer.ReadyTimeout, v.ReadyTimeout)
		set(&c.Viewer.ReadyFallback, v.ReadyFallback)
		set(&c.Viewer.BaseLocation, v.BaseLocation)
	}
	if d := layer.Documents; d != nil {
		set(&c.Documents.Viewer, d.Viewer)
		set(&c.Documents.Annotations, d.Annotations)
		set(&c.Documents.Forms, d.Forms)
		set(&c.Documents.Editor, d.Editor)
	}
	if l := layer.Log; l != nil {
		set(&c.Log.Level, l.Level)
		set(&c.Log.File, l.File)
	}
	if s := layer.Shell; s != nil {
		set(&c.Shell.StartMode, s.StartMode)
		set(&c.Shell.SidebarCollapsed, s.SidebarCollapsed)
		set(&c.Shell.StateDir, s.StateDir)
	}
}

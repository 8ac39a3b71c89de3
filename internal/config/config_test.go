package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/viewer"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timings() != viewer.DefaultTimings() {
		t.Errorf("default timings = %+v, want %+v", cfg.Timings(), viewer.DefaultTimings())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level = %q, want %q", cfg.Log.Level, "info")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDocumentFor(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		mode mode.Mode
		want string
	}{
		{mode.None, "/blob.pdf"},
		{mode.Viewer, "/blob.pdf"},
		{mode.Annotations, "/document.pdf"},
		{mode.Forms, "/form.pdf"},
		{mode.Editor, "/editor.pdf"},
	}
	for _, tt := range tests {
		if got := cfg.DocumentFor(tt.mode); got != tt.want {
			t.Errorf("DocumentFor(%v) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(`
viewer:
  gate_timeout: 2s
  base_location: https://docs.example.test/
documents:
  forms: /custom-form.pdf
shell:
  start_mode: editor
  sidebar_collapsed: true
  state_dir: /tmp/docshell-state
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Viewer.GateTimeout != 2*time.Second {
		t.Errorf("gate timeout = %v, want %v", cfg.Viewer.GateTimeout, 2*time.Second)
	}
	if cfg.Viewer.BaseLocation != "https://docs.example.test/" {
		t.Errorf("base location = %q", cfg.Viewer.BaseLocation)
	}
	if cfg.DocumentFor(mode.Forms) != "/custom-form.pdf" {
		t.Errorf("forms document = %q", cfg.DocumentFor(mode.Forms))
	}
	m, err := cfg.StartMode()
	if err != nil || m != mode.Editor {
		t.Errorf("StartMode() = %v, %v; want EDITOR", m, err)
	}
	if !cfg.Shell.SidebarCollapsed {
		t.Error("sidebar_collapsed not applied")
	}
	if cfg.Shell.StateDir != "/tmp/docshell-state" {
		t.Errorf("state dir = %q", cfg.Shell.StateDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load() should return defaults for missing file, got error: %v", err)
	}
	want := DefaultConfig()
	if *cfg != want {
		t.Errorf("Load(missing) = %+v, want defaults %+v", *cfg, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load(invalid YAML) should return error")
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(`
log:
  level: debug
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want %q", cfg.Log.Level, "debug")
	}
	// Unset fields should retain defaults.
	if cfg.Log.File != ".docshell/docshell.log" {
		t.Errorf("log file = %q, want default", cfg.Log.File)
	}
	if cfg.Viewer.ReadyTimeout != 30*time.Second {
		t.Errorf("ready timeout = %v, want default %v", cfg.Viewer.ReadyTimeout, 30*time.Second)
	}
}

func TestLoad_LayeredPriority(t *testing.T) {
	// Setup: user config sets the log level, project config overrides the gate timeout.
	userDir := t.TempDir()
	projectDir := t.TempDir()

	userCfg := filepath.Join(userDir, "config.yaml")
	if err := os.WriteFile(userCfg, []byte(`
log:
  level: warn
viewer:
  gate_timeout: 1s
`), 0o644); err != nil {
		t.Fatal(err)
	}

	projectCfg := filepath.Join(projectDir, "config.yaml")
	if err := os.WriteFile(projectCfg, []byte(`
viewer:
  gate_timeout: 3s
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLayered(userCfg, projectCfg)
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}
	// Level from user config (project doesn't set it).
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want %q", cfg.Log.Level, "warn")
	}
	// Gate timeout from project config (overrides user).
	if cfg.Viewer.GateTimeout != 3*time.Second {
		t.Errorf("gate timeout = %v, want %v", cfg.Viewer.GateTimeout, 3*time.Second)
	}
	// Settle delay retains default when neither layer sets it.
	if cfg.Viewer.SettleDelay != 50*time.Millisecond {
		t.Errorf("settle delay = %v, want default", cfg.Viewer.SettleDelay)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr bool
		check   func(*testing.T, Config)
	}{
		{
			name: "DOCSHELL_BASE_LOCATION overrides base location",
			envs: map[string]string{"DOCSHELL_BASE_LOCATION": "/srv/docs"},
			check: func(t *testing.T, c Config) {
				if c.Viewer.BaseLocation != "/srv/docs" {
					t.Errorf("base location = %q, want %q", c.Viewer.BaseLocation, "/srv/docs")
				}
			},
		},
		{
			name: "DOCSHELL_GATE_TIMEOUT overrides gate timeout",
			envs: map[string]string{"DOCSHELL_GATE_TIMEOUT": "750ms"},
			check: func(t *testing.T, c Config) {
				if c.Viewer.GateTimeout != 750*time.Millisecond {
					t.Errorf("gate timeout = %v, want %v", c.Viewer.GateTimeout, 750*time.Millisecond)
				}
			},
		},
		{
			name: "DOCSHELL_LOG_LEVEL is lowercased",
			envs: map[string]string{"DOCSHELL_LOG_LEVEL": "DEBUG"},
			check: func(t *testing.T, c Config) {
				if c.Log.Level != "debug" {
					t.Errorf("log level = %q, want %q", c.Log.Level, "debug")
				}
			},
		},
		{
			name: "DOCSHELL_START_MODE overrides start mode",
			envs: map[string]string{"DOCSHELL_START_MODE": "forms"},
			check: func(t *testing.T, c Config) {
				if m, _ := c.StartMode(); m != mode.Forms {
					t.Errorf("start mode = %v, want FORMS", m)
				}
			},
		},
		{
			name:    "invalid DOCSHELL_READY_TIMEOUT returns error",
			envs:    map[string]string{"DOCSHELL_READY_TIMEOUT": "notaduration"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envs {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			err := cfg.ApplyEnv()

			if tt.wantErr {
				if err == nil {
					t.Fatal("ApplyEnv() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnv() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_UnknownField(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(`
viewer:
  gate_timout: 1s
`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() should return error for unknown field 'gate_timout'")
	}
}

func TestLoadLayered_UnknownField(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("shell:\n  colour: blue\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLayered(cfgPath); err == nil {
		t.Fatal("LoadLayered() should reject unknown fields")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:   "zero settle delay is valid",
			modify: func(c *Config) { c.Viewer.SettleDelay = 0 },
		},
		{
			name:    "zero gate timeout",
			modify:  func(c *Config) { c.Viewer.GateTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative ready timeout",
			modify:  func(c *Config) { c.Viewer.ReadyTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative fallback",
			modify:  func(c *Config) { c.Viewer.ReadyFallback = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "empty forms document",
			modify:  func(c *Config) { c.Documents.Forms = " " },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "unknown start mode",
			modify:  func(c *Config) { c.Shell.StartMode = "slideshow" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_CommentOnlyFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("# just a comment\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load(comment-only) error = %v", err)
	}
	want := DefaultConfig()
	if *cfg != want {
		t.Errorf("Load(comment-only) = %+v, want defaults %+v", *cfg, want)
	}
}

func TestLoadLayered_AllMissing(t *testing.T) {
	cfg, err := LoadLayered("/no/user.yaml", "/no/project.yaml")
	if err != nil {
		t.Fatalf("LoadLayered(all missing) error = %v", err)
	}
	want := DefaultConfig()
	if *cfg != want {
		t.Errorf("got %+v, want defaults %+v", *cfg, want)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load(empty) error = %v", err)
	}
	want := DefaultConfig()
	if *cfg != want {
		t.Errorf("Load(empty) = %+v, want defaults %+v", *cfg, want)
	}
}

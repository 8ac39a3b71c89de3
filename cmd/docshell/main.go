package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smileynet/docshell/internal/config"
	"github.com/smileynet/docshell/internal/engine/pdf"
	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/shell"
	"github.com/smileynet/docshell/internal/source"
	"github.com/smileynet/docshell/internal/state"
	"github.com/smileynet/docshell/internal/tui"
	"github.com/smileynet/docshell/internal/viewer"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for docshell.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	View    ViewCmd          `cmd:"" help:"Open the interactive document shell."`
	Inspect InspectCmd       `cmd:"" help:"Load a document without the shell and report its lifecycle."`
	Modes   ModesCmd         `cmd:"" help:"List modes and the engine configuration each applies."`
	Export  ExportCmd        `cmd:"" help:"Write a document back out through the page editor."`
}

// loadConfig loads layered config from user and project paths with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/docshell/config.yaml"),
		".docshell/config.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds a logger writing JSON entries at the configured level.
func newLogger(level string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, lvl)
	return zap.New(core), nil
}

// fileLogger logs to the configured file while the shell owns the terminal.
func fileLogger(cfg config.Log) (*zap.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	log, err := newLogger(cfg.Level, zapcore.AddSync(f))
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return log, func() {
		_ = log.Sync()
		_ = f.Close()
	}, nil
}

// stderrLogger logs to stderr for non-interactive commands.
func stderrLogger(cfg config.Log) (*zap.Logger, error) {
	return newLogger(cfg.Level, zapcore.Lock(os.Stderr))
}

// --- View command ---

// ViewCmd opens the interactive shell.
type ViewCmd struct {
	Mode string `help:"Mode to start in (viewer, annotations, forms, editor)."`
	Doc  string `help:"Document for the start mode, replacing its default."`
}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the shell.
func (v *ViewCmd) Run() error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("view: requires a terminal (TTY)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	start, err := v.startMode(cfg)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}

	log, closeLog, err := fileLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer closeLog()
	viewer.SetLogger(log)

	opts := []shell.Option{
		shell.WithLogger(log),
		shell.WithDocuments(v.documents(cfg, start)),
		shell.WithStartMode(start),
		shell.WithCollapsedRail(cfg.Shell.SidebarCollapsed),
		shell.WithTimings(cfg.Timings()),
		shell.WithBaseLocation(cfg.Viewer.BaseLocation),
		shell.WithBlobStore(source.NewStore()),
	}
	if cfg.Shell.StateDir != "" {
		opts = append(opts, shell.WithPositionStore(state.NewPositionFileStore(cfg.Shell.StateDir)))
	}
	m := shell.New(pdf.Shared(), opts...)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	return v.run(true, prog)
}

// run executes the tea program and disposes whatever the shell left
// loaded, enabling testable wiring.
func (v *ViewCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("view: requires a terminal (TTY)")
	}
	final, err := prog.Run()
	if m, ok := final.(shell.Model); ok {
		m.Close()
	}
	return err
}

// startMode returns the --mode flag, else the configured start mode.
func (v *ViewCmd) startMode(cfg *config.Config) (mode.Mode, error) {
	if v.Mode != "" {
		return mode.Parse(v.Mode)
	}
	return cfg.StartMode()
}

// documents returns the default document per mode, with --doc replacing
// the start mode's.
func (v *ViewCmd) documents(cfg *config.Config, start mode.Mode) map[mode.Mode]string {
	docs := make(map[mode.Mode]string, len(mode.All()))
	for _, m := range mode.All() {
		docs[m] = cfg.DocumentFor(m)
	}
	if v.Doc != "" {
		docs[start.OrDefault()] = v.Doc
	}
	return docs
}

// --- Inspect command ---

// InspectCmd loads a document into a headless session, requests modes in
// order and prints what the engine extracted.
type InspectCmd struct {
	Doc   string   `arg:"" help:"Document path or URL."`
	Modes []string `name:"mode" help:"Modes to request, in order." placeholder:"MODE"`
	NoTUI bool     `help:"Force plain text output even if stdout is a TTY." default:"false"`
}

// Run executes the inspect command.
func (c *InspectCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	modes, err := parseModes(c.Modes)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	log, err := stderrLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	defer func() { _ = log.Sync() }()
	viewer.SetLogger(log)

	// The cancel func is passed to the TUI so q / Ctrl+C stops the load.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := tui.NewBridge()
	display := tui.NewDisplay(tui.DisplayOptions{
		Writer:     os.Stdout,
		ForcePlain: c.NoTUI,
		Stages:     inspectStages(modes),
		CancelFunc: cancel,
	})
	return c.run(ctx, os.Stdout, pdf.Shared(), cfg, modes, display, bridge)
}

// run drives the session with display lifecycle management, enabling
// testable wiring.
func (c *InspectCmd) run(ctx context.Context, w io.Writer, eng viewer.Engine, cfg *config.Config, modes []mode.Mode, display tui.Display, bridge *tui.Bridge) error {
	displayDone := make(chan error, 1)
	go func() {
		displayDone <- display.Run(context.Background(), bridge.Events())
	}()

	var report documentReport
	s, runErr := startSession(ctx, eng, cfg, c.Doc, modes, bridge.Send)
	if runErr == nil {
		report = describe(s)
		s.Dispose()
	}

	if runErr != nil {
		bridge.Error(runErr)
	} else {
		bridge.Done()
	}
	// Wait for display to finish (so it releases the terminal).
	<-displayDone

	if runErr != nil {
		return runErr
	}
	report.print(w)
	return nil
}

// inspectStages lists the stages a display starts with.
func inspectStages(modes []mode.Mode) []string {
	stages := []string{tui.StageLoad, tui.StageReady}
	if len(modes) == 0 {
		return append(stages, tui.ModeStage(mode.None))
	}
	seen := make(map[string]bool)
	for _, m := range modes {
		name := tui.ModeStage(m)
		if !seen[name] {
			seen[name] = true
			stages = append(stages, name)
		}
	}
	return stages
}

// documentReport is what inspect prints after the session settles.
type documentReport struct {
	Name string
	Mode mode.Mode
	Doc  *pdf.Document
}

func describe(s *viewer.Session) documentReport {
	r := documentReport{}
	r.Mode, _ = s.AppliedMode()
	inst, ok := s.Instance()
	if !ok {
		return r
	}
	if p, ok := inst.(*pdf.Instance); ok {
		r.Name = p.Name()
		r.Doc, _ = p.Document()
	}
	return r
}

func (r documentReport) print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Document:    %s\n", r.Name)
	_, _ = fmt.Fprintf(w, "Mode:        %s\n", r.Mode)
	if r.Doc == nil {
		return
	}
	if r.Doc.Title != "" {
		_, _ = fmt.Fprintf(w, "Title:       %s\n", r.Doc.Title)
	}
	if r.Doc.Author != "" {
		_, _ = fmt.Fprintf(w, "Author:      %s\n", r.Doc.Author)
	}
	if r.Doc.Version != "" {
		_, _ = fmt.Fprintf(w, "Version:     %s\n", r.Doc.Version)
	}
	_, _ = fmt.Fprintf(w, "Pages:       %d\n", r.Doc.PageCount())
	_, _ = fmt.Fprintf(w, "Fields:      %d\n", len(r.Doc.Fields))
	_, _ = fmt.Fprintf(w, "Annotations: %d\n", len(r.Doc.Annotations))
	_, _ = fmt.Fprintf(w, "Bookmarks:   %d\n", len(r.Doc.Bookmarks))
	for _, warn := range r.Doc.Warnings {
		_, _ = fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

// --- Modes command ---

// ModesCmd prints every mode with its view state and resolved toolbar.
type ModesCmd struct{}

// Run executes the modes command.
func (c *ModesCmd) Run() error {
	return c.run(os.Stdout, pdf.Shared().Catalog())
}

func (c *ModesCmd) run(w io.Writer, catalog mode.Catalog) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MODE", "INTERACTION", "SIDEBAR", "TOOLBAR")
	for _, m := range mode.All() {
		cfg := mode.ConfigurationFor(m)
		items := mode.Resolve(cfg.Items, catalog)
		names := make([]string, len(items))
		for i, item := range items {
			names[i] = item.Type
		}
		t.Row(m.String(), orNone(string(cfg.View.Interaction)), orNone(string(cfg.View.Sidebar)), strings.Join(names, " "))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// --- Export command ---

// ExportCmd loads a document in the editor, applies page rotations and
// writes the result.
type ExportCmd struct {
	Doc    string   `arg:"" help:"Document path or URL."`
	Out    string   `arg:"" help:"Output PDF path."`
	Rotate []string `help:"Rotate a page clockwise, as PAGE:DEGREES (pages count from 1)." placeholder:"PAGE:DEG"`
}

// rotation is one parsed --rotate value.
type rotation struct {
	page int // Zero-based display position.
	deg  int
}

// Run executes the export command.
func (c *ExportCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	rotations, err := parseRotations(c.Rotate)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	log, err := stderrLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() { _ = log.Sync() }()
	viewer.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx, os.Stdout, pdf.Shared(), cfg, rotations)
}

func (c *ExportCmd) run(ctx context.Context, w io.Writer, eng viewer.Engine, cfg *config.Config, rotations []rotation) (err error) {
	s, err := startSession(ctx, eng, cfg, c.Doc, []mode.Mode{mode.Editor}, nil)
	if err != nil {
		return err
	}
	defer s.Dispose()

	inst, _ := s.Instance()
	doc, ok := inst.(*pdf.Instance)
	if !ok {
		return fmt.Errorf("export: engine instance %T cannot export", inst)
	}
	for _, r := range rotations {
		if err := doc.Rotate(r.page, r.deg); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: %w", cerr)
		}
	}()
	if err := doc.Export(ctx, f); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %s → %s\n", doc.Name(), c.Out)
	return nil
}

// --- Shared helpers ---

// headless is an always-ready container for runs without a shell pane.
type headless struct {
	width, height int
}

func (h *headless) Attached() bool { return true }
func (h *headless) Size() (int, int) { return h.width, h.height }
func (h *headless) Position() viewer.Position { return viewer.PositionRelative }

// startSession loads ref into a headless container, requests modes in
// order and waits until the last one has been applied. With no modes it
// waits for the default mode. The caller disposes the returned session.
func startSession(ctx context.Context, eng viewer.Engine, cfg *config.Config, ref string, modes []mode.Mode, onEvent func(viewer.Event)) (*viewer.Session, error) {
	applied := make(chan struct{}, 1)
	s := viewer.NewSession(eng, &headless{width: 80, height: 24},
		viewer.WithTimings(cfg.Timings()),
		viewer.WithBaseLocation(cfg.Viewer.BaseLocation),
		viewer.WithEventCallback(func(ev viewer.Event) {
			if onEvent != nil {
				onEvent(ev)
			}
			if ev.Kind == viewer.EventModeApplied {
				select {
				case applied <- struct{}{}:
				default:
				}
			}
		}),
	)

	if err := s.Start(ctx, source.Ref(ref)); err != nil {
		s.Dispose()
		return nil, err
	}
	if _, ok := s.Instance(); !ok {
		s.Dispose()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s was not loaded", ref)
	}

	target := mode.None
	for _, m := range modes {
		s.Reconfigure(m)
		target = m
	}
	target = target.OrDefault()

	wait := cfg.Viewer.ReadyTimeout + cfg.Viewer.GateTimeout
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		if m, ok := s.AppliedMode(); ok && m == target {
			return s, nil
		}
		select {
		case <-applied:
		case <-ctx.Done():
			s.Dispose()
			return nil, ctx.Err()
		case <-timer.C:
			s.Dispose()
			return nil, fmt.Errorf("mode %s not applied within %s", target, wait)
		}
	}
}

// parseModes parses --mode values.
func parseModes(values []string) ([]mode.Mode, error) {
	modes := make([]mode.Mode, 0, len(values))
	for _, v := range values {
		m, err := mode.Parse(v)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// parseRotations parses --rotate values of the form PAGE:DEGREES.
func parseRotations(values []string) ([]rotation, error) {
	out := make([]rotation, 0, len(values))
	for _, v := range values {
		page, deg, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("rotate %q: want PAGE:DEGREES", v)
		}
		p, err := strconv.Atoi(strings.TrimSpace(page))
		if err != nil || p < 1 {
			return nil, fmt.Errorf("rotate %q: page must be a positive number", v)
		}
		d, err := strconv.Atoi(strings.TrimSpace(deg))
		if err != nil || d%90 != 0 {
			return nil, fmt.Errorf("rotate %q: degrees must be a multiple of 90", v)
		}
		out = append(out, rotation{page: p - 1, deg: d})
	}
	return out, nil
}

// Exit codes.
const (
	exitSuccess = 0
	exitLoad    = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var le *viewer.LoadError
	if errors.As(err, &le) {
		return exitLoad
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("docshell"),
		kong.Description("A terminal document shell with viewer, annotation, form and editor modes."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

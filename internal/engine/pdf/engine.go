// Package pdf implements the viewer engine on top of pdfkit: it parses
// documents, extracts their text, annotations, form fields and outline,
// and renders the result into a terminal pane.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/wudi/pdfkit/ir"
	"github.com/wudi/pdfkit/ir/semantic"
	"go.uber.org/zap"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/viewer"
)

// ErrNotLoaded is returned by Unload when nothing is mounted in a container.
var ErrNotLoaded = errors.New("pdf: nothing loaded in container")

// ParseFunc turns raw document bytes into a semantic document.
type ParseFunc func(ctx context.Context, r io.ReaderAt) (*semantic.Document, error)

// Engine loads documents into containers. Instances are tracked per
// container so Unload can release whatever a container holds.
type Engine struct {
	log    *zap.Logger
	client *http.Client
	parse  ParseFunc

	mu      sync.Mutex
	mounted map[viewer.Container]map[*Instance]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithParser replaces the pdfkit parsing pipeline.
func WithParser(p ParseFunc) Option {
	return func(e *Engine) { e.parse = p }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:     zap.NewNop(),
		client:  &http.Client{Timeout: 30 * time.Second},
		mounted: make(map[viewer.Container]map[*Instance]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parse == nil {
		e.parse = ir.NewDefault().Parse
	}
	return e
}

var (
	sharedOnce   sync.Once
	sharedEngine *Engine
)

// Shared returns the process-wide engine, creating it on first use. It
// lives for the rest of the process.
func Shared() *Engine {
	sharedOnce.Do(func() {
		sharedEngine = New(WithLogger(viewer.Logger().Named("pdf")))
	})
	return sharedEngine
}

// Load reads and parses req.Source, mounts the result in req.Container and
// starts extraction in the background. The instance reports readiness
// once extraction finishes.
func (e *Engine) Load(ctx context.Context, req viewer.LoadRequest) (viewer.Instance, error) {
	data, name, err := e.read(ctx, req.Source, req.BaseLocation)
	if err != nil {
		return nil, err
	}
	doc, err := e.parse(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pdf: parsing %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inst := newInstance(e, req.Container, name, doc)
	e.mount(inst)
	e.log.Debug("document mounted",
		zap.String("document", name),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("bytes", len(data)))

	go inst.extract()
	return inst, nil
}

// Unload closes every instance mounted in c.
func (e *Engine) Unload(c viewer.Container) error {
	e.mu.Lock()
	set := e.mounted[c]
	delete(e.mounted, c)
	e.mu.Unlock()

	if len(set) == 0 {
		return ErrNotLoaded
	}
	for inst := range set {
		inst.shutdown()
	}
	return nil
}

// Mounted returns the number of instances mounted in c.
func (e *Engine) Mounted(c viewer.Container) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.mounted[c])
}

// Catalog lists the toolbar items this engine renders.
func (e *Engine) Catalog() mode.Catalog {
	out := make(mode.Catalog, len(toolbarCatalog))
	for k, v := range toolbarCatalog {
		out[k] = v
	}
	return out
}

func (e *Engine) mount(inst *Instance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := e.mounted[inst.container]
	if set == nil {
		set = make(map[*Instance]struct{})
		e.mounted[inst.container] = set
	}
	set[inst] = struct{}{}
}

// unmount removes inst and reports whether it was mounted.
func (e *Engine) unmount(inst *Instance) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := e.mounted[inst.container]
	if _, ok := set[inst]; !ok {
		return false
	}
	delete(set, inst)
	if len(set) == 0 {
		delete(e.mounted, inst.container)
	}
	return true
}

var toolbarCatalog = mode.Catalog{
	"sidebar-thumbnails":  {Type: "sidebar-thumbnails", Title: "Thumbnails"},
	"sidebar-bookmarks":   {Type: "sidebar-bookmarks", Title: "Bookmarks"},
	"sidebar-annotations": {Type: "sidebar-annotations", Title: "Annotations"},
	"pager":               {Type: "pager", Title: "Page", Key: "n/p"},
	"zoom-out":            {Type: "zoom-out", Title: "Zoom out", Key: "-"},
	"zoom-in":             {Type: "zoom-in", Title: "Zoom in", Key: "+"},
	"zoom-mode":           {Type: "zoom-mode", Title: "Fit"},
	"search":              {Type: "search", Title: "Search"},
	"print":               {Type: "print", Title: "Print"},
	"export-pdf":          {Type: "export-pdf", Title: "Export"},
	"highlighter":         {Type: "highlighter", Title: "Highlight"},
	"text-highlighter":    {Type: "text-highlighter", Title: "Text highlight"},
	"ink":                 {Type: "ink", Title: "Ink"},
	"note":                {Type: "note", Title: "Note"},
	"text":                {Type: "text", Title: "Text"},
	"form-creator":        {Type: "form-creator", Title: "Form creator"},
	"signature":           {Type: "signature", Title: "Signature"},
	"document-editor":     {Type: "document-editor", Title: "Organise", Key: "[ ] r"},
	"document-crop":       {Type: "document-crop", Title: "Crop"},
}

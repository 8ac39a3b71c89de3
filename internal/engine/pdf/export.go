package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wudi/pdfkit/builder"
	"github.com/wudi/pdfkit/ir/semantic"
	"github.com/wudi/pdfkit/writer"
	"go.uber.org/zap"
)

// ErrNotReady is returned by Export before extraction has finished.
var ErrNotReady = errors.New("pdf: document not ready")

const (
	exportFontSize = 11.0
	exportLeading  = 14.0
	exportMargin   = 48.0
	letterWidth    = 612.0
	letterHeight   = 792.0
)

// Export writes the document as currently organised: pages in display
// order with their rotation, carrying extracted text and the outline.
func (i *Instance) Export(ctx context.Context, w io.Writer) error {
	doc, err := i.exportDocument()
	if err != nil {
		return err
	}
	if err := (&writer.WriterBuilder{}).Build().Write(ctx, doc, w, writer.Config{Deterministic: true}); err != nil {
		return fmt.Errorf("pdf: writing %s: %w", i.name, err)
	}
	i.engine.log.Info("document exported", zap.String("document", i.name), zap.Int("pages", len(doc.Pages)))
	return nil
}

func (i *Instance) exportDocument() (*semantic.Document, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrClosed
	}
	if !i.ready {
		return nil, ErrNotReady
	}

	b := builder.NewBuilder()
	b.SetInfo(&semantic.DocumentInfo{
		Title:    i.title(),
		Author:   i.doc.Author,
		Producer: "docshell",
	})

	position := make(map[int]int, len(i.order))
	for pos, idx := range i.order {
		position[idx] = pos
		pg := Page{Index: idx}
		if idx < len(i.doc.Pages) {
			pg = i.doc.Pages[idx]
		}
		w, h := pg.Width, pg.Height
		if w <= 0 || h <= 0 {
			w, h = letterWidth, letterHeight
		}
		pb := b.NewPage(w, h)
		y := h - exportMargin
		for _, line := range strings.Split(pg.Text, "\n") {
			if y < exportMargin {
				break
			}
			if line = strings.TrimRight(line, " \t\r"); line != "" {
				pb.DrawText(line, exportMargin, y, builder.TextOptions{FontSize: exportFontSize})
			}
			y -= exportLeading
		}
		if rot := i.rotationLocked(idx); rot != 0 {
			pb.SetRotation(rot)
		}
		pb.Finish()
		if pg.Label != "" {
			b.AddPageLabel(pos, pg.Label)
		}
	}

	for _, bm := range i.doc.Bookmarks {
		if bm.Depth != 0 {
			continue
		}
		pos, ok := position[bm.Page]
		if !ok {
			continue
		}
		b.AddOutline(builder.Outline{Title: bm.Title, PageIndex: pos})
	}

	doc, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("pdf: building %s: %w", i.name, err)
	}
	return doc, nil
}

package pdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/pdfkit/extractor"
	"github.com/wudi/pdfkit/ir/semantic"
)

// Page is one page of an extracted document.
type Page struct {
	Index  int
	Label  string
	Text   string
	Width  float64
	Height float64
	Rotate int
}

// Annotation is a page annotation as shown in the annotations sidebar.
type Annotation struct {
	Page     int
	Subtype  string
	Contents string
	URI      string
}

// Field is an AcroForm field as shown in the form designer.
type Field struct {
	Name string
	Type string
	Page int
	Rect semantic.Rectangle
}

// Bookmark is a flattened outline entry.
type Bookmark struct {
	Title string
	Page  int
	Depth int
}

// Document is everything the engine extracted from a parsed file.
type Document struct {
	Title       string
	Author      string
	Producer    string
	Version     string
	Pages       []Page
	Annotations []Annotation
	Fields      []Field
	Bookmarks   []Bookmark
	// Warnings lists extraction steps that failed; the document is still
	// usable with whatever was recovered.
	Warnings []string
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// Extract pulls text, annotations, form fields, outline and metadata out
// of a parsed document.
func Extract(doc *semantic.Document) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("pdf: no document")
	}
	out := &Document{Pages: pagesOf(doc)}
	if doc.Info != nil {
		out.Title = doc.Info.Title
		out.Author = doc.Info.Author
		out.Producer = doc.Info.Producer
	}

	ext, err := extractor.New(doc.Decoded())
	if err != nil {
		return out, fmt.Errorf("pdf: preparing extractor: %w", err)
	}

	meta := ext.ExtractMetadata()
	out.Version = meta.Version
	if out.Title == "" {
		out.Title = meta.Info.Title
	}
	if out.Author == "" {
		out.Author = meta.Info.Author
	}
	if out.Producer == "" {
		out.Producer = meta.Info.Producer
	}
	if len(out.Pages) == 0 && meta.PageCount > 0 {
		out.Pages = make([]Page, meta.PageCount)
		for i := range out.Pages {
			out.Pages[i].Index = i
		}
	}
	for idx, label := range ext.PageLabels() {
		if idx >= 0 && idx < len(out.Pages) {
			out.Pages[idx].Label = label
		}
	}

	if texts, err := ext.ExtractText(); err != nil {
		out.Warnings = append(out.Warnings, "text: "+err.Error())
	} else {
		for _, pt := range texts {
			if pt.Page >= 0 && pt.Page < len(out.Pages) {
				out.Pages[pt.Page].Text = strings.TrimSpace(pt.Content)
				if pt.Label != "" {
					out.Pages[pt.Page].Label = pt.Label
				}
			}
		}
	}

	if annots, err := ext.ExtractAnnotations(); err != nil {
		out.Warnings = append(out.Warnings, "annotations: "+err.Error())
	} else {
		for _, a := range annots {
			out.Annotations = append(out.Annotations, Annotation{
				Page:     a.Page,
				Subtype:  a.Subtype,
				Contents: a.Contents,
				URI:      a.URI,
			})
		}
	}

	if form, err := ext.ExtractAcroForm(); err != nil {
		out.Warnings = append(out.Warnings, "form: "+err.Error())
	} else if form != nil {
		for _, f := range form.Fields {
			out.Fields = append(out.Fields, Field{
				Name: f.FieldName(),
				Type: f.FieldType(),
				Page: f.FieldPageIndex(),
				Rect: f.FieldRect(),
			})
		}
		sort.SliceStable(out.Fields, func(i, j int) bool { return out.Fields[i].Page < out.Fields[j].Page })
	}

	flattenBookmarks(ext.ExtractBookmarks(), 0, &out.Bookmarks)
	return out, nil
}

func pagesOf(doc *semantic.Document) []Page {
	pages := make([]Page, 0, len(doc.Pages))
	for i, p := range doc.Pages {
		if p == nil {
			continue
		}
		box := p.MediaBox
		pg := Page{
			Index:  i,
			Width:  box.URX - box.LLX,
			Height: box.URY - box.LLY,
			Rotate: normalizeRotation(p.Rotate),
		}
		if l, ok := doc.PageLabels[i]; ok {
			pg.Label = l
		}
		pages = append(pages, pg)
	}
	return pages
}

func flattenBookmarks(in []extractor.Bookmark, depth int, out *[]Bookmark) {
	for _, b := range in {
		*out = append(*out, Bookmark{Title: b.Title, Page: b.Page, Depth: depth})
		flattenBookmarks(b.Children, depth+1, out)
	}
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg - deg%90
}

package mode

// Spacer is the pseudo-item that separates toolbar groups. It is always
// synthesized and never looked up in a Catalog.
const Spacer = "spacer"

// ToolbarItem is a concrete toolbar entry understood by the engine.
type ToolbarItem struct {
	Type  string
	Title string
	Key   string // Shortcut shown next to the title; empty for none.
}

// Catalog maps toolbar item identifiers to the engine's item descriptors.
type Catalog map[string]ToolbarItem

// Resolve maps ids to concrete items using catalog. Unknown ids are
// skipped; Spacer is always synthesized. The result never holds zero
// (unresolved) items.
func Resolve(ids []string, catalog Catalog) []ToolbarItem {
	items := make([]ToolbarItem, 0, len(ids))
	for _, id := range ids {
		if id == Spacer {
			items = append(items, ToolbarItem{Type: Spacer})
			continue
		}
		item, ok := catalog[id]
		if !ok || item.Type == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// Feature describes a mode for the tool rail's detail card.
type Feature struct {
	Mode        Mode
	Name        string
	Description string
	Features    []string
}

var features = map[Mode]Feature{
	Viewer: {
		Mode:        Viewer,
		Name:        "Viewer",
		Description: "View and navigate PDF documents with smooth scrolling and zoom controls",
		Features:    []string{"Zoom & Pan", "Page Navigation", "Search Text", "Bookmarks"},
	},
	Annotations: {
		Mode:        Annotations,
		Name:        "Annotations",
		Description: "Add highlights, comments, and markup tools to collaborate on documents",
		Features:    []string{"Highlight Text", "Add Comments", "Draw Shapes", "Sticky Notes"},
	},
	Forms: {
		Mode:        Forms,
		Name:        "Forms",
		Description: "Fill interactive forms, add signatures, and validate form data",
		Features:    []string{"Fill Fields", "Digital Signature", "Validate Data", "Export Forms"},
	},
	Editor: {
		Mode:        Editor,
		Name:        "Editor",
		Description: "Edit PDF content, modify text, add images, and rearrange pages",
		Features:    []string{"Edit Text", "Add Images", "Rearrange Pages", "Merge PDFs"},
	},
}

// FeatureFor returns the tool-rail description of m (Viewer for None).
func FeatureFor(m Mode) Feature {
	f, ok := features[m]
	if !ok {
		return features[Viewer]
	}
	return f
}

package shell

import (
	"context"
	"testing"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/state"
)

func TestScrollMemory_RestoresPage(t *testing.T) {
	mem := newScrollMemory(nil, nil)
	first := &fakeDoc{name: "report.pdf", pages: 10}

	detach := mem.Attach(context.Background(), first)
	if detach == nil {
		t.Fatal("Attach() should return a detach func for pagers")
	}
	first.SetPage(6)
	detach()

	if n, ok := mem.page("report.pdf"); !ok || n != 6 {
		t.Errorf("remembered page = %d, %v; want 6", n, ok)
	}

	second := &fakeDoc{name: "report.pdf", pages: 10}
	mem.Attach(context.Background(), second)
	if second.Page() != 6 {
		t.Errorf("restored page = %d, want 6", second.Page())
	}

	other := &fakeDoc{name: "other.pdf", pages: 10}
	mem.Attach(context.Background(), other)
	if other.Page() != 0 {
		t.Errorf("unrelated document page = %d, want 0", other.Page())
	}
}

// bareInstance has no page navigation.
type bareInstance struct{}

func (bareInstance) SetViewState(func(mode.ViewState) mode.ViewState) error { return nil }
func (bareInstance) SetToolbarItems([]mode.ToolbarItem) error { return nil }

func TestScrollMemory_IgnoresNonPagers(t *testing.T) {
	mem := newScrollMemory(nil, nil)
	if mem.Attach(context.Background(), bareInstance{}) != nil {
		t.Error("Attach() should skip instances without pages")
	}
}

func TestScrollMemory_PersistsAcrossRuns(t *testing.T) {
	store := state.NewPositionFileStore(t.TempDir())

	// Given a page left in one run
	first := newScrollMemory(store, nil)
	doc := &fakeDoc{name: "report.pdf", pages: 10}
	detach := first.Attach(context.Background(), doc)
	doc.SetPage(8)
	detach()

	// When a fresh memory attaches the same document
	second := newScrollMemory(store, nil)
	again := &fakeDoc{name: "report.pdf", pages: 10}
	second.Attach(context.Background(), again)

	// Then the page comes back from the store
	if again.Page() != 8 {
		t.Errorf("restored page = %d, want 8", again.Page())
	}
	if pos, found, err := store.LoadPosition("report.pdf"); err != nil || !found || pos.Page != 8 {
		t.Errorf("stored position = %+v, %v, %v", pos, found, err)
	}
}

package shell

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/smileynet/docshell/internal/state"
	"github.com/smileynet/docshell/internal/viewer"
)

// pager is implemented by instances with page navigation.
type pager interface {
	Name() string
	Page() int
	SetPage(n int)
}

// PositionStore persists the page each document was left on.
type PositionStore interface {
	SavePosition(p state.Position) error
	LoadPosition(document string) (state.Position, bool, error)
}

// scrollMemory remembers the page each document was on when its instance
// went away and restores it when the document loads again. With a store,
// positions also survive restarts.
type scrollMemory struct {
	mu    sync.Mutex
	pages map[string]int
	store PositionStore
	log   *zap.Logger
}

func newScrollMemory(store PositionStore, log *zap.Logger) *scrollMemory {
	if log == nil {
		log = zap.NewNop()
	}
	return &scrollMemory{pages: make(map[string]int), store: store, log: log}
}

// Attach implements viewer.Hook.
func (s *scrollMemory) Attach(_ context.Context, inst viewer.Instance) func() {
	p, ok := inst.(pager)
	if !ok {
		return nil
	}
	name := p.Name()
	if page, seen := s.lookup(name); seen {
		p.SetPage(page)
	}
	return func() {
		page := p.Page()
		s.mu.Lock()
		s.pages[name] = page
		s.mu.Unlock()
		if s.store == nil {
			return
		}
		if err := s.store.SavePosition(state.Position{Document: name, Page: page}); err != nil {
			s.log.Warn("saving page position failed", zap.String("document", name), zap.Error(err))
		}
	}
}

// lookup returns the remembered page, falling back to the store.
func (s *scrollMemory) lookup(name string) (int, bool) {
	s.mu.Lock()
	page, seen := s.pages[name]
	s.mu.Unlock()
	if seen || s.store == nil {
		return page, seen
	}
	pos, found, err := s.store.LoadPosition(name)
	if err != nil {
		s.log.Warn("loading page position failed", zap.String("document", name), zap.Error(err))
		return 0, false
	}
	return pos.Page, found
}

// page returns the remembered page for a document.
func (s *scrollMemory) page(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.pages[name]
	return n, ok
}

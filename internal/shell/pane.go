package shell

import (
	"sync/atomic"

	"github.com/smileynet/docshell/internal/viewer"
)

// Pane is the document region of the shell. Its geometry is written by
// the Bubble Tea goroutine on every layout and read by sessions from
// their own goroutines.
type Pane struct {
	attached atomic.Bool
	width    atomic.Int64
	height   atomic.Int64
	seq      atomic.Uint64
}

// Layout records the pane's inner size and marks it attached. A pane
// with no area stays in static flow, which the readiness gate rejects.
func (p *Pane) Layout(width, height int) {
	p.width.Store(int64(max(width, 0)))
	p.height.Store(int64(max(height, 0)))
	p.attached.Store(true)
}

// Detach removes the pane from the visible tree.
func (p *Pane) Detach() {
	p.attached.Store(false)
}

// Attached implements viewer.Container.
func (p *Pane) Attached() bool { return p.attached.Load() }

// Size implements viewer.Container.
func (p *Pane) Size() (width, height int) {
	return int(p.width.Load()), int(p.height.Load())
}

// Position implements viewer.Container.
func (p *Pane) Position() viewer.Position {
	if !p.Attached() {
		return viewer.PositionStatic
	}
	if w, h := p.Size(); w <= 0 || h <= 0 {
		return viewer.PositionStatic
	}
	return viewer.PositionRelative
}

// mount returns a distinct container handle over the pane's geometry.
// Each session gets its own handle, so unloading one document's
// container never reaches an instance mounted for the next.
func (p *Pane) mount() *paneMount {
	return &paneMount{Pane: p, id: p.seq.Add(1)}
}

type paneMount struct {
	*Pane
	id uint64
}

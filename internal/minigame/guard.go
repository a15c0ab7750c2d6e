package minigame

import "sync/atomic"

// guard is the validity bit carried by every owned entity.
type guard struct {
	orphaned atomic.Bool
	kind     string
	id       string
}

func (g *guard) init(kind, id string) {
	g.kind = kind
	g.id = id
}

func (g *guard) ensureValid() error {
	if g.orphaned.Load() {
		return &StaleError{Kind: g.kind, ID: g.id}
	}
	return nil
}

// orphan clears the bit. It must be the last step of an orphaning operation.
func (g *guard) orphan() {
	g.orphaned.Store(true)
}

// Orphaned reports whether the entity has been invalidated.
func (g *guard) Orphaned() bool {
	return g.orphaned.Load()
}

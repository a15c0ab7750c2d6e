// Package rollback records the original state of arena cells so they can be
// written back when a round ends.
package rollback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/minigames/internal/physical"
)

const (
	defaultCaptureLimit = 1 << 20
	defaultConcurrency  = 8
)

// Journal maps cells to the state they had when first captured. Entries are
// kept in insertion order. It is safe for concurrent use.
type Journal struct {
	mu       sync.Mutex
	world    physical.WorldAccessor
	boundary physical.Boundary
	logger   *slog.Logger

	captureLimit int64
	concurrency  int

	armed    bool
	tracking bool
	order    []physical.Cell
	states   map[physical.Cell]physical.CellState
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger used for capture warnings.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// WithCaptureLimit caps how many cells BeginTracking snapshots. Larger
// boundaries rely on explicit marks only.
func WithCaptureLimit(n int64) Option {
	return func(j *Journal) { j.captureLimit = n }
}

// WithConcurrency sets how many cell reads run in parallel during capture.
func WithConcurrency(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

// New returns an empty, unarmed journal over the given boundary.
func New(world physical.WorldAccessor, boundary physical.Boundary, opts ...Option) *Journal {
	j := &Journal{
		world:        world,
		boundary:     boundary,
		logger:       slog.Default(),
		captureLimit: defaultCaptureLimit,
		concurrency:  defaultConcurrency,
		states:       map[physical.Cell]physical.CellState{},
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// SetCaptureLimit changes the limit used by later BeginTracking calls.
func (j *Journal) SetCaptureLimit(n int64) {
	j.mu.Lock()
	j.captureLimit = n
	j.mu.Unlock()
}

// Boundary returns the region the journal guards.
func (j *Journal) Boundary() physical.Boundary {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.boundary
}

// SetBoundary replaces the guarded region. It fails while a round is being
// tracked.
func (j *Journal) SetBoundary(b physical.Boundary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.tracking {
		return ErrAlreadyTracking
	}
	j.boundary = b
	return nil
}

// Armed reports whether Restore has something to do.
func (j *Journal) Armed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.armed
}

// Tracking reports whether a round's changes are being recorded.
func (j *Journal) Tracking() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tracking
}

// Len returns the number of captured cells.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.order)
}

// Tracked reports whether the cell containing loc has been captured.
func (j *Journal) Tracked(loc physical.Location3D) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.states[j.cellOf(loc)]
	return ok
}

// BeginTracking arms the journal for a new round and snapshots every cell in
// the boundary. Entries left by marks made outside a round are dropped.
func (j *Journal) BeginTracking(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.tracking {
		return ErrAlreadyTracking
	}

	order, states, err := j.capture(ctx)
	if err != nil {
		return err
	}
	j.order, j.states = order, states
	j.armed = true
	j.tracking = true
	return nil
}

func (j *Journal) capture(ctx context.Context) ([]physical.Cell, map[physical.Cell]physical.CellState, error) {
	states := map[physical.Cell]physical.CellState{}

	n := j.boundary.CellCount()
	if n > j.captureLimit {
		j.logger.Warn("boundary too large for snapshot, relying on explicit marks",
			"cells", n,
			"limit", j.captureLimit,
			"boundary", j.boundary.String(),
		)
		return nil, states, nil
	}

	order := make([]physical.Cell, 0, n)
	j.boundary.Cells(func(c physical.Cell) bool {
		order = append(order, c)
		return true
	})

	if rr, ok := j.world.(physical.RegionReader); ok {
		region, err := rr.ReadRegion(ctx, j.boundary)
		if err != nil {
			return nil, nil, &Error{Op: "capture", Err: err}
		}
		for _, c := range order {
			s, ok := region[c]
			if !ok {
				return nil, nil, &Error{Op: "capture", Cell: c, Err: fmt.Errorf("cell missing from region read")}
			}
			states[c] = s
		}
		return order, states, nil
	}

	read := make([]physical.CellState, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for i, c := range order {
		g.Go(func() error {
			s, err := j.world.Read(gctx, c)
			if err != nil {
				return &Error{Op: "capture", Cell: c, Err: err}
			}
			read[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	for i, c := range order {
		states[c] = read[i]
	}
	return order, states, nil
}

// Mark captures the current state of the cell containing loc unless it is
// already tracked. It arms the journal.
func (j *Journal) Mark(ctx context.Context, loc physical.Location3D) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.boundary.Contains(loc) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, loc)
	}
	c := j.cellOf(loc)
	if _, ok := j.states[c]; ok {
		return nil
	}
	s, err := j.world.Read(ctx, c)
	if err != nil {
		return &Error{Op: "mark", Cell: c, Err: err}
	}
	j.order = append(j.order, c)
	j.states[c] = s
	j.armed = true
	return nil
}

// Restore writes every captured state back in insertion order and then
// empties the journal. On failure nothing is cleared.
func (j *Journal) Restore(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.armed {
		return 0, ErrNothingToRestore
	}

	writes := make([]physical.CellWrite, len(j.order))
	for i, c := range j.order {
		writes[i] = physical.CellWrite{Cell: c, State: j.states[c]}
	}

	if bw, ok := j.world.(physical.BatchWriter); ok {
		if err := bw.WriteBatch(ctx, writes); err != nil {
			return 0, &Error{Op: "restore", Err: err}
		}
	} else {
		for _, w := range writes {
			if err := ctx.Err(); err != nil {
				return 0, &Error{Op: "restore", Cell: w.Cell, Err: err}
			}
			if err := j.world.Write(ctx, w.Cell, w.State); err != nil {
				return 0, &Error{Op: "restore", Cell: w.Cell, Err: err}
			}
		}
	}

	j.reset()
	return len(writes), nil
}

// Discard empties the journal without writing anything back.
func (j *Journal) Discard() {
	j.mu.Lock()
	j.reset()
	j.mu.Unlock()
}

func (j *Journal) reset() {
	j.order = nil
	j.states = map[physical.Cell]physical.CellState{}
	j.armed = false
	j.tracking = false
}

// cellOf puts loc in the boundary's world when it has none.
func (j *Journal) cellOf(loc physical.Location3D) physical.Cell {
	c := loc.Cell()
	if c.World == "" {
		c.World = j.boundary.World()
	}
	return c
}

package epoch

import "sync/atomic"

// Generation is one immutable published version of a cell's payload.
// It stays alive while it is the cell's current generation, parked in
// a history, or pinned by a reader; whichever goroutine drops the last
// reference destroys it.
type Generation[T any] struct {
	seq    uint64
	value  T
	refcnt int64
	cell   *Cell[T]
}

func (g *Generation[T]) Seq() uint64 {
	return g.seq
}

func (g *Generation[T]) Value() T {
	return g.value
}

// Retain adds a reference. It refuses a generation whose count already
// reached zero: such a generation is under destruction and must not be
// resurrected.
func (g *Generation[T]) Retain() bool {
	for {
		refcnt := atomic.LoadInt64(&g.refcnt)
		if refcnt == 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&g.refcnt, refcnt, refcnt+1) {
			return true
		}
	}
}

func (g *Generation[T]) Release() {
	if atomic.AddInt64(&g.refcnt, -1) == 0 {
		atomic.AddInt64(&g.cell.live, -1)
		if g.cell.drop != nil {
			g.cell.drop(g.value)
		}
	}
}

// Cell publishes a sequence of generations through a single atomic
// pointer. Pin is safe from any goroutine at any time; Publish and Tip
// belong to whoever holds the write gate. The cell itself owns one
// reference to the current generation.
type Cell[T any] struct {
	current atomic.Pointer[Generation[T]]
	seq     uint64
	live    int64
	drop    func(T)
}

func New[T any](initial T, drop func(T)) *Cell[T] {
	c := &Cell[T]{live: 1, drop: drop}
	c.current.Store(&Generation[T]{value: initial, refcnt: 1, cell: c})
	return c
}

// Pin retains the current generation without blocking. A failed retain
// means a publish and final release slipped in between the load and
// the retain; the reloaded pointer is then a newer generation.
func (c *Cell[T]) Pin() *Generation[T] {
	for {
		g := c.current.Load()
		if g.Retain() {
			return g
		}
	}
}

// Tip returns the current generation unretained.
func (c *Cell[T]) Tip() *Generation[T] {
	return c.current.Load()
}

// Publish swaps value in as the next generation and transfers the
// cell's reference to the superseded generation to the caller, who
// parks it in a history or releases it.
func (c *Cell[T]) Publish(value T) *Generation[T] {
	c.seq++
	g := &Generation[T]{seq: c.seq, value: value, refcnt: 1, cell: c}
	atomic.AddInt64(&c.live, 1)
	return c.current.Swap(g)
}

func (c *Cell[T]) Seq() uint64 {
	return c.current.Load().seq
}

// Live counts generations not yet destroyed.
func (c *Cell[T]) Live() int64 {
	return atomic.LoadInt64(&c.live)
}

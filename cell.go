package mv

import (
	"runtime"

	"github.com/kezhuw/guard"

	"github.com/Erigara/mv/internal/epoch"
)

// Cell is the single-value counterpart of Storage: one managed value
// with the same generations, scopes, history and revert. A published
// value is shared with every reader pinned to its generation and must
// not be modified in place.
type Cell[V any] struct {
	cell *epoch.Cell[V]
	gate writerGate
	hist history[V]
}

func NewCell[V any](initial V, opts *Options) *Cell[V] {
	return &Cell[V]{
		cell: epoch.New(initial, nil),
		gate: writerGate{wait: waitWriter(opts)},
		hist: history[V]{depth: historyDepth(opts)},
	}
}

// Load returns the current value.
func (c *Cell[V]) Load() V {
	g := c.cell.Pin()
	value := g.Value()
	g.Release()
	return value
}

// Version returns the sequence number of the current generation.
func (c *Cell[V]) Version() uint64 {
	return c.cell.Seq()
}

// View pins the current generation for reading.
func (c *Cell[V]) View() *CellView[V] {
	return newCellView(c.cell.Pin())
}

// Block opens the write scope. With WaitWriter the call waits its FIFO
// turn; otherwise it fails with ErrWriterBusy while another block is
// open.
func (c *Cell[V]) Block() (*CellBlock[V], error) {
	locker, err := c.gate.acquire()
	if err != nil {
		return nil, err
	}
	tip := c.cell.Tip()
	return &CellBlock[V]{
		cell:   c,
		locker: locker,
		draft:  tip.Value(),
		base:   tip.Seq(),
	}, nil
}

// Update runs fn inside a block and commits when fn returns nil. Any
// other exit path, error or panic, rolls the block back.
func (c *Cell[V]) Update(fn func(*CellBlock[V]) error) error {
	b, err := c.Block()
	if err != nil {
		return err
	}
	defer b.discard()
	if err := fn(b); err != nil {
		return err
	}
	return b.Commit()
}

// RevertLast republishes the newest retained prior generation. It
// fails with ErrScopeActive while a write scope is open and with
// ErrNoHistory when nothing is retained.
func (c *Cell[V]) RevertLast() error {
	if !c.gate.tryClaim() {
		return ErrScopeActive
	}
	defer c.gate.unclaim()
	prior := c.hist.pop()
	if prior == nil {
		return ErrNoHistory
	}
	c.cell.Publish(prior.Value()).Release()
	prior.Release()
	return nil
}

func (c *Cell[V]) commit(draft V) {
	c.hist.retire(c.cell.Publish(draft))
}

// CellView is a read guard pinned to one generation of a cell.
// Operations on a closed view panic with ErrViewClosed.
type CellView[V any] struct {
	gen    *epoch.Generation[V]
	closed bool
}

func newCellView[V any](gen *epoch.Generation[V]) *CellView[V] {
	v := &CellView[V]{gen: gen}
	runtime.SetFinalizer(v, (*CellView[V]).finalize)
	return v
}

func (v *CellView[V]) Value() V {
	if v.closed {
		panic(ErrViewClosed)
	}
	return v.gen.Value()
}

// Version returns the sequence number of the pinned generation.
func (v *CellView[V]) Version() uint64 {
	if v.closed {
		panic(ErrViewClosed)
	}
	return v.gen.Seq()
}

// Dup opens another view pinned to the same generation.
func (v *CellView[V]) Dup() *CellView[V] {
	if v.closed {
		panic(ErrViewClosed)
	}
	// our own pin keeps the count positive
	v.gen.Retain()
	return newCellView(v.gen)
}

func (v *CellView[V]) finalize() error {
	if v.closed {
		return ErrViewClosed
	}
	v.closed = true
	v.gen.Release()
	return nil
}

// Close releases the pin.
func (v *CellView[V]) Close() error {
	runtime.SetFinalizer(v, nil)
	return v.finalize()
}

// CellBlock is the write scope of a cell: a draft of the next value.
type CellBlock[V any] struct {
	cell   *Cell[V]
	locker guard.Locker
	draft  V
	base   uint64
	tx     *CellTransaction[V]
	done   bool
}

// Base returns the sequence number of the generation the draft was
// built from.
func (b *CellBlock[V]) Base() uint64 {
	return b.base
}

func (b *CellBlock[V]) state() error {
	switch {
	case b.done:
		return ErrScopeClosed
	case b.tx != nil:
		return ErrScopeActive
	default:
		return nil
	}
}

func (b *CellBlock[V]) Get() (V, error) {
	if err := b.state(); err != nil {
		var zero V
		return zero, err
	}
	return b.draft, nil
}

func (b *CellBlock[V]) Set(value V) error {
	if err := b.state(); err != nil {
		return err
	}
	b.draft = value
	return nil
}

// Transaction opens the nested write scope. Transactions are serial:
// opening another one while the previous is still open fails with
// ErrWriterBusy.
func (b *CellBlock[V]) Transaction() (*CellTransaction[V], error) {
	switch {
	case b.done:
		return nil, ErrScopeClosed
	case b.tx != nil:
		return nil, ErrWriterBusy
	}
	b.tx = &CellTransaction[V]{block: b}
	return b.tx, nil
}

// Step runs fn inside a transaction and commits when fn returns nil.
// Any other exit path rolls the transaction back.
func (b *CellBlock[V]) Step(fn func(*CellTransaction[V]) error) error {
	tx, err := b.Transaction()
	if err != nil {
		return err
	}
	defer tx.discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Commit publishes the draft as the next generation and retires the
// superseded one into history.
func (b *CellBlock[V]) Commit() error {
	if err := b.state(); err != nil {
		return err
	}
	b.cell.commit(b.draft)
	b.close()
	return nil
}

// Rollback discards the draft. An open transaction is force-closed.
func (b *CellBlock[V]) Rollback() error {
	if b.done {
		return ErrScopeClosed
	}
	if b.tx != nil {
		b.tx.drop()
	}
	b.close()
	return nil
}

func (b *CellBlock[V]) discard() {
	if !b.done {
		b.Rollback()
	}
}

func (b *CellBlock[V]) close() {
	b.done = true
	b.cell.gate.release(b.locker)
	b.locker = nil
}

// CellTransaction is the nested write scope of a cell. The first Set
// saves the prior draft so Rollback can restore it.
type CellTransaction[V any] struct {
	block *CellBlock[V]
	saved V
	dirty bool
	done  bool
}

func (tx *CellTransaction[V]) Get() (V, error) {
	if tx.done {
		var zero V
		return zero, ErrScopeClosed
	}
	return tx.block.draft, nil
}

func (tx *CellTransaction[V]) Set(value V) error {
	if tx.done {
		return ErrScopeClosed
	}
	if !tx.dirty {
		tx.saved = tx.block.draft
		tx.dirty = true
	}
	tx.block.draft = value
	return nil
}

// Commit keeps the transaction's value in the block's draft.
func (tx *CellTransaction[V]) Commit() error {
	if tx.done {
		return ErrScopeClosed
	}
	tx.close()
	return nil
}

// Rollback restores the block's draft to its state before the
// transaction.
func (tx *CellTransaction[V]) Rollback() error {
	if tx.done {
		return ErrScopeClosed
	}
	if tx.dirty {
		tx.block.draft = tx.saved
	}
	tx.close()
	return nil
}

// drop abandons the transaction when its block rolls back wholesale.
func (tx *CellTransaction[V]) drop() {
	tx.close()
}

func (tx *CellTransaction[V]) discard() {
	if !tx.done {
		tx.Rollback()
	}
}

func (tx *CellTransaction[V]) close() {
	tx.done = true
	tx.block.tx = nil
	tx.block = nil
}

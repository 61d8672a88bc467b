package mv

import (
	"cmp"

	"github.com/google/btree"

	"github.com/Erigara/mv/internal/epoch"
)

const btreeDegree = 32

type item[K, V any] struct {
	key   K
	value V
}

// Storage is a multi-version ordered key-value store for one writer
// and any number of lock-free readers. The writer stages mutations in
// block and transaction scopes and publishes them as immutable
// generations; readers pin a generation and observe it unchanged for
// as long as they hold the pin. Superseded generations stay retained
// in a bounded history so the last committed block can be reverted.
type Storage[K, V any] struct {
	less func(a, b K) bool
	free *btree.FreeListG[item[K, V]]
	cell *epoch.Cell[*btree.BTreeG[item[K, V]]]
	gate writerGate
	hist history[*btree.BTreeG[item[K, V]]]
}

// Stats reports the current generation alongside the reclamation
// gauges: generations not yet destroyed and retained history entries.
type Stats struct {
	Version uint64
	Len     int
	Live    int
	History int
}

// New creates an empty storage for ordered keys.
func New[K cmp.Ordered, V any](opts *Options) *Storage[K, V] {
	return NewFunc[K, V](func(a, b K) bool { return a < b }, opts)
}

// NewFunc creates an empty storage with keys ordered by less.
func NewFunc[K, V any](less func(a, b K) bool, opts *Options) *Storage[K, V] {
	s := &Storage[K, V]{
		less: less,
		free: btree.NewFreeListG[item[K, V]](btree.DefaultFreeListSize),
		gate: writerGate{wait: waitWriter(opts)},
		hist: history[*btree.BTreeG[item[K, V]]]{depth: historyDepth(opts)},
	}
	s.cell = epoch.New(s.newTree(), func(t *btree.BTreeG[item[K, V]]) {
		t.Clear(true)
	})
	return s
}

func (s *Storage[K, V]) newTree() *btree.BTreeG[item[K, V]] {
	less := s.less
	return btree.NewWithFreeListG(btreeDegree, func(a, b item[K, V]) bool {
		return less(a.key, b.key)
	}, s.free)
}

// View pins the current generation for reading.
func (s *Storage[K, V]) View() *View[K, V] {
	return newView(s.cell.Pin())
}

// Get returns the value under key in the current generation.
func (s *Storage[K, V]) Get(key K) (V, error) {
	g := s.cell.Pin()
	it, ok := g.Value().Get(item[K, V]{key: key})
	g.Release()
	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return it.value, nil
}

// Contains reports whether key is present in the current generation.
func (s *Storage[K, V]) Contains(key K) bool {
	g := s.cell.Pin()
	ok := g.Value().Has(item[K, V]{key: key})
	g.Release()
	return ok
}

// Len returns the number of entries in the current generation.
func (s *Storage[K, V]) Len() int {
	g := s.cell.Pin()
	n := g.Value().Len()
	g.Release()
	return n
}

// Version returns the sequence number of the current generation.
func (s *Storage[K, V]) Version() uint64 {
	return s.cell.Seq()
}

func (s *Storage[K, V]) Stats() Stats {
	g := s.cell.Pin()
	stats := Stats{
		Version: g.Seq(),
		Len:     g.Value().Len(),
	}
	g.Release()
	stats.Live = int(s.cell.Live())
	stats.History = s.hist.len()
	return stats
}

// Block opens the top-level write scope over a draft of the current
// generation. With WaitWriter the call waits its FIFO turn; otherwise
// it fails with ErrWriterBusy while another block is open.
func (s *Storage[K, V]) Block() (*Block[K, V], error) {
	locker, err := s.gate.acquire()
	if err != nil {
		return nil, err
	}
	tip := s.cell.Tip()
	return &Block[K, V]{
		storage: s,
		locker:  locker,
		draft:   tip.Value().Clone(),
		base:    tip.Seq(),
	}, nil
}

// Update runs fn inside a block and commits when fn returns nil. Any
// other exit path, error or panic, rolls the block back.
func (s *Storage[K, V]) Update(fn func(*Block[K, V]) error) error {
	b, err := s.Block()
	if err != nil {
		return err
	}
	defer b.discard()
	if err := fn(b); err != nil {
		return err
	}
	return b.Commit()
}

// RevertLast republishes the newest retained prior generation,
// restoring the store to its state before the last committed block.
// It fails with ErrScopeActive while any write scope is open and with
// ErrNoHistory when nothing is retained. Reverting consumes the
// history entry: at the default depth a second revert without an
// intervening commit fails.
func (s *Storage[K, V]) RevertLast() error {
	if !s.gate.tryClaim() {
		return ErrScopeActive
	}
	defer s.gate.unclaim()
	prior := s.hist.pop()
	if prior == nil {
		return ErrNoHistory
	}
	s.cell.Publish(prior.Value().Clone()).Release()
	prior.Release()
	return nil
}

func (s *Storage[K, V]) commit(draft *btree.BTreeG[item[K, V]]) {
	s.hist.retire(s.cell.Publish(draft))
}

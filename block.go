package mv

import (
	"github.com/google/btree"
	"github.com/kezhuw/guard"
)

// Block is the top-level write scope: a draft of the next generation.
// Mutations stay invisible to readers until Commit publishes them all
// at once; Rollback discards them all, committed transactions
// included. A block belongs to one goroutine; concurrent readers go
// through views.
type Block[K, V any] struct {
	storage  *Storage[K, V]
	locker   guard.Locker
	draft    *btree.BTreeG[item[K, V]]
	base     uint64
	tx       *Transaction[K, V]
	undoFree *btree.FreeListG[undo[K, V]]
	done     bool
}

// Base returns the sequence number of the generation the draft was
// built from.
func (b *Block[K, V]) Base() uint64 {
	return b.base
}

func (b *Block[K, V]) state() error {
	switch {
	case b.done:
		return ErrScopeClosed
	case b.tx != nil:
		return ErrScopeActive
	default:
		return nil
	}
}

func (b *Block[K, V]) Get(key K) (V, error) {
	if err := b.state(); err != nil {
		var zero V
		return zero, err
	}
	it, ok := b.draft.Get(item[K, V]{key: key})
	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return it.value, nil
}

func (b *Block[K, V]) Contains(key K) (bool, error) {
	if err := b.state(); err != nil {
		return false, err
	}
	return b.draft.Has(item[K, V]{key: key}), nil
}

func (b *Block[K, V]) Len() (int, error) {
	if err := b.state(); err != nil {
		return 0, err
	}
	return b.draft.Len(), nil
}

// Set stages key=value in the draft.
func (b *Block[K, V]) Set(key K, value V) error {
	if err := b.state(); err != nil {
		return err
	}
	b.draft.ReplaceOrInsert(item[K, V]{key: key, value: value})
	return nil
}

// Delete stages removal of key. Deleting an absent key is a no-op.
func (b *Block[K, V]) Delete(key K) error {
	if err := b.state(); err != nil {
		return err
	}
	b.draft.Delete(item[K, V]{key: key})
	return nil
}

// Ascend walks the draft in key order until fn returns false.
func (b *Block[K, V]) Ascend(fn func(key K, value V) bool) error {
	if err := b.state(); err != nil {
		return err
	}
	b.draft.Ascend(func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
	return nil
}

// AscendRange walks draft entries with from <= key < to in key order.
func (b *Block[K, V]) AscendRange(from, to K, fn func(key K, value V) bool) error {
	if err := b.state(); err != nil {
		return err
	}
	b.draft.AscendRange(item[K, V]{key: from}, item[K, V]{key: to}, func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
	return nil
}

// AscendGreaterOrEqual walks draft entries with from <= key in key order.
func (b *Block[K, V]) AscendGreaterOrEqual(from K, fn func(key K, value V) bool) error {
	if err := b.state(); err != nil {
		return err
	}
	b.draft.AscendGreaterOrEqual(item[K, V]{key: from}, func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
	return nil
}

// Transaction opens the nested write scope. Transactions are serial:
// opening another one while the previous is still open fails with
// ErrWriterBusy.
func (b *Block[K, V]) Transaction() (*Transaction[K, V], error) {
	switch {
	case b.done:
		return nil, ErrScopeClosed
	case b.tx != nil:
		return nil, ErrWriterBusy
	}
	if b.undoFree == nil {
		b.undoFree = btree.NewFreeListG[undo[K, V]](btree.DefaultFreeListSize)
	}
	less := b.storage.less
	b.tx = &Transaction[K, V]{
		block: b,
		log: btree.NewWithFreeListG(btreeDegree, func(a, b undo[K, V]) bool {
			return less(a.key, b.key)
		}, b.undoFree),
	}
	return b.tx, nil
}

// Step runs fn inside a transaction and commits when fn returns nil.
// Any other exit path rolls the transaction back, leaving the draft as
// it was before the step.
func (b *Block[K, V]) Step(fn func(*Transaction[K, V]) error) error {
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
// superseded one into history. The block is closed afterwards.
func (b *Block[K, V]) Commit() error {
	if err := b.state(); err != nil {
		return err
	}
	b.storage.commit(b.draft)
	b.close()
	return nil
}

// Rollback discards the draft wholesale. An open transaction is
// force-closed; its writes die with the draft.
func (b *Block[K, V]) Rollback() error {
	if b.done {
		return ErrScopeClosed
	}
	if b.tx != nil {
		b.tx.drop()
	}
	b.draft.Clear(true)
	b.close()
	return nil
}

func (b *Block[K, V]) discard() {
	if !b.done {
		b.Rollback()
	}
}

func (b *Block[K, V]) close() {
	b.done = true
	b.draft = nil
	b.storage.gate.release(b.locker)
	b.locker = nil
}

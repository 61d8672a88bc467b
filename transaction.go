package mv

import "github.com/google/btree"

type undo[K, V any] struct {
	key     K
	value   V
	present bool
}

// Transaction is the nested write scope: one atomic unit of work
// inside a block. Writes go straight to the block's draft while the
// prior state of every touched key is kept in an undo log, so Commit
// is O(1) and Rollback replays the log to restore the draft.
type Transaction[K, V any] struct {
	block *Block[K, V]
	log   *btree.BTreeG[undo[K, V]]
	done  bool
}

func (tx *Transaction[K, V]) Get(key K) (V, error) {
	if tx.done {
		var zero V
		return zero, ErrScopeClosed
	}
	it, ok := tx.block.draft.Get(item[K, V]{key: key})
	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return it.value, nil
}

func (tx *Transaction[K, V]) Contains(key K) (bool, error) {
	if tx.done {
		return false, ErrScopeClosed
	}
	return tx.block.draft.Has(item[K, V]{key: key}), nil
}

func (tx *Transaction[K, V]) Len() (int, error) {
	if tx.done {
		return 0, ErrScopeClosed
	}
	return tx.block.draft.Len(), nil
}

// Ascend walks the draft, transaction writes included, in key order
// until fn returns false.
func (tx *Transaction[K, V]) Ascend(fn func(key K, value V) bool) error {
	if tx.done {
		return ErrScopeClosed
	}
	tx.block.draft.Ascend(func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
	return nil
}

// AscendRange walks draft entries with from <= key < to in key order.
func (tx *Transaction[K, V]) AscendRange(from, to K, fn func(key K, value V) bool) error {
	if tx.done {
		return ErrScopeClosed
	}
	tx.block.draft.AscendRange(item[K, V]{key: from}, item[K, V]{key: to}, func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
	return nil
}

// AscendGreaterOrEqual walks draft entries with from <= key in key order.
func (tx *Transaction[K, V]) AscendGreaterOrEqual(from K, fn func(key K, value V) bool) error {
	if tx.done {
		return ErrScopeClosed
	}
	tx.block.draft.AscendGreaterOrEqual(item[K, V]{key: from}, func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
	return nil
}

// record saves key's prior state once; later writes to the same key
// within the transaction leave the first record in place.
func (tx *Transaction[K, V]) record(key K) {
	if _, ok := tx.log.Get(undo[K, V]{key: key}); ok {
		return
	}
	prior, present := tx.block.draft.Get(item[K, V]{key: key})
	tx.log.ReplaceOrInsert(undo[K, V]{key: key, value: prior.value, present: present})
}

func (tx *Transaction[K, V]) Set(key K, value V) error {
	if tx.done {
		return ErrScopeClosed
	}
	tx.record(key)
	tx.block.draft.ReplaceOrInsert(item[K, V]{key: key, value: value})
	return nil
}

// Delete stages removal of key. Deleting an absent key is a no-op.
func (tx *Transaction[K, V]) Delete(key K) error {
	if tx.done {
		return ErrScopeClosed
	}
	tx.record(key)
	tx.block.draft.Delete(item[K, V]{key: key})
	return nil
}

// Commit keeps every write of the transaction in the block's draft and
// discards the undo log.
func (tx *Transaction[K, V]) Commit() error {
	if tx.done {
		return ErrScopeClosed
	}
	tx.log.Clear(true)
	tx.close()
	return nil
}

// Rollback replays the undo log, restoring the block's draft to its
// state before the transaction.
func (tx *Transaction[K, V]) Rollback() error {
	if tx.done {
		return ErrScopeClosed
	}
	draft := tx.block.draft
	tx.log.Ascend(func(u undo[K, V]) bool {
		switch {
		case u.present:
			draft.ReplaceOrInsert(item[K, V]{key: u.key, value: u.value})
		default:
			draft.Delete(item[K, V]{key: u.key})
		}
		return true
	})
	tx.log.Clear(true)
	tx.close()
	return nil
}

// drop abandons the transaction when its block rolls back wholesale.
// The draft dies with the block, so the log is not replayed.
func (tx *Transaction[K, V]) drop() {
	tx.close()
}

func (tx *Transaction[K, V]) discard() {
	if !tx.done {
		tx.Rollback()
	}
}

func (tx *Transaction[K, V]) close() {
	tx.done = true
	tx.block.tx = nil
	tx.block = nil
	tx.log = nil
}

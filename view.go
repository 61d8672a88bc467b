package mv

import (
	"runtime"

	"github.com/google/btree"

	"github.com/Erigara/mv/internal/epoch"
)

// View is a read guard pinned to one generation. It keeps answering
// from that generation no matter what commits or reverts happen after
// it was opened. Close releases the pin; leaked views are released by
// a finalizer. Operations on a closed view panic with ErrViewClosed.
type View[K, V any] struct {
	gen    *epoch.Generation[*btree.BTreeG[item[K, V]]]
	closed bool
}

func newView[K, V any](gen *epoch.Generation[*btree.BTreeG[item[K, V]]]) *View[K, V] {
	v := &View[K, V]{gen: gen}
	runtime.SetFinalizer(v, (*View[K, V]).finalize)
	return v
}

func (v *View[K, V]) tree() *btree.BTreeG[item[K, V]] {
	if v.closed {
		panic(ErrViewClosed)
	}
	return v.gen.Value()
}

// Version returns the sequence number of the pinned generation.
func (v *View[K, V]) Version() uint64 {
	if v.closed {
		panic(ErrViewClosed)
	}
	return v.gen.Seq()
}

func (v *View[K, V]) Get(key K) (V, error) {
	it, ok := v.tree().Get(item[K, V]{key: key})
	if !ok {
		var zero V
		return zero, ErrKeyNotFound
	}
	return it.value, nil
}

func (v *View[K, V]) Contains(key K) bool {
	return v.tree().Has(item[K, V]{key: key})
}

func (v *View[K, V]) Len() int {
	return v.tree().Len()
}

// Ascend walks entries in key order until fn returns false.
func (v *View[K, V]) Ascend(fn func(key K, value V) bool) {
	v.tree().Ascend(func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
}

// AscendRange walks entries with from <= key < to in key order.
func (v *View[K, V]) AscendRange(from, to K, fn func(key K, value V) bool) {
	v.tree().AscendRange(item[K, V]{key: from}, item[K, V]{key: to}, func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
}

// AscendGreaterOrEqual walks entries with from <= key in key order.
func (v *View[K, V]) AscendGreaterOrEqual(from K, fn func(key K, value V) bool) {
	v.tree().AscendGreaterOrEqual(item[K, V]{key: from}, func(it item[K, V]) bool {
		return fn(it.key, it.value)
	})
}

// Dup opens another view pinned to the same generation.
func (v *View[K, V]) Dup() *View[K, V] {
	if v.closed {
		panic(ErrViewClosed)
	}
	// our own pin keeps the count positive
	v.gen.Retain()
	return newView(v.gen)
}

func (v *View[K, V]) finalize() error {
	if v.closed {
		return ErrViewClosed
	}
	v.closed = true
	v.gen.Release()
	return nil
}

// Close releases the pin. The generation is destroyed once it is
// neither current, nor retained for revert, nor pinned elsewhere.
func (v *View[K, V]) Close() error {
	runtime.SetFinalizer(v, nil)
	return v.finalize()
}

package mv

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kezhuw/guard"

	"github.com/Erigara/mv/internal/epoch"
)

// writerGate serializes write scopes. Fail-fast acquisition is a bare
// flag. Waiting acquisition queues on a FIFO guard and then claims the
// same flag, which a revert may still hold for a moment between locker
// handoffs.
type writerGate struct {
	writing int32
	queue   guard.Guard
	wait    bool
}

func (w *writerGate) acquire() (guard.Locker, error) {
	if !w.wait {
		if !w.tryClaim() {
			return nil, ErrWriterBusy
		}
		return nil, nil
	}
	locker := w.queue.NewLocker()
	locker.Lock()
	for !w.tryClaim() {
		runtime.Gosched()
	}
	return locker, nil
}

func (w *writerGate) release(locker guard.Locker) {
	w.unclaim()
	if locker != nil {
		locker.Unlock()
	}
}

func (w *writerGate) tryClaim() bool {
	return atomic.CompareAndSwapInt32(&w.writing, 0, 1)
}

func (w *writerGate) unclaim() {
	atomic.StoreInt32(&w.writing, 0)
}

// history retains superseded generations for revert, newest last,
// owning one reference per retained entry.
type history[T any] struct {
	mu      sync.Mutex
	entries []*epoch.Generation[T]
	depth   int
}

func (h *history[T]) retire(g *epoch.Generation[T]) {
	if h.depth == 0 {
		g.Release()
		return
	}
	var evicted *epoch.Generation[T]
	h.mu.Lock()
	h.entries = append(h.entries, g)
	if len(h.entries) > h.depth {
		evicted = h.entries[0]
		h.entries = h.entries[1:]
	}
	h.mu.Unlock()
	if evicted != nil {
		evicted.Release()
	}
}

func (h *history[T]) pop() *epoch.Generation[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.entries)
	if n == 0 {
		return nil
	}
	g := h.entries[n-1]
	h.entries = h.entries[:n-1]
	return g
}

func (h *history[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

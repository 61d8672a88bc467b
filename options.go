package mv

// DefaultHistoryDepth is the number of prior generations retained when
// Options does not say otherwise: enough to revert the most recently
// committed block exactly once.
const DefaultHistoryDepth = 1

type Options struct {
	// HistoryDepth sets how many superseded generations stay retained
	// for RevertLast. Zero means DefaultHistoryDepth; a negative depth
	// retains none, so reverting always fails with ErrNoHistory.
	HistoryDepth int

	// WaitWriter makes Block wait for the active write scope to finish
	// instead of failing with ErrWriterBusy. Waiters acquire the write
	// gate in FIFO order.
	WaitWriter bool
}

func historyDepth(opts *Options) int {
	switch {
	case opts == nil || opts.HistoryDepth == 0:
		return DefaultHistoryDepth
	case opts.HistoryDepth < 0:
		return 0
	default:
		return opts.HistoryDepth
	}
}

func waitWriter(opts *Options) bool {
	return opts != nil && opts.WaitWriter
}

package mv

import "errors"

var (
	// ErrWriterBusy reports an attempt to open a second write scope
	// while one is active: a block on a fail-fast storage that already
	// has an open block, or a transaction on a block whose previous
	// transaction is still open.
	ErrWriterBusy = errors.New("mv: writer busy")

	// ErrScopeClosed reports an operation on a scope that was already
	// committed or rolled back.
	ErrScopeClosed = errors.New("mv: scope closed")

	// ErrScopeActive reports an operation that needs the writer side to
	// be quiescent: a revert while a write scope is open, or a block
	// operation while the block's transaction is open.
	ErrScopeActive = errors.New("mv: scope active")

	// ErrNoHistory reports a revert with no retained prior generation.
	ErrNoHistory = errors.New("mv: no history")

	// ErrKeyNotFound reports a read of an absent key.
	ErrKeyNotFound = errors.New("mv: key not found")

	// ErrViewClosed is the panic value for operations on a closed view.
	ErrViewClosed = errors.New("mv: view closed")
)

// Package mv provides a multi-version storage primitive for the
// single-writer, many-readers access pattern: one writer stages
// mutations in block and transaction scopes while any number of
// readers observe consistent point-in-time generations without locks.
//
// Storage manages an ordered key-value map, Cell a single value. Both
// publish immutable generations through an atomic pointer swap.
// Readers pin a generation with View and keep reading it, unchanged,
// for as long as the view stays open; a generation is reclaimed once
// it is neither current, nor retained for revert, nor pinned.
//
// Writes go through scopes. A Block drafts the next generation; its
// serial Transactions are units of work that either merge into the
// draft on Commit or leave it untouched on Rollback. Committing the
// block publishes everything at once; rolling it back discards
// everything, committed transactions included. The closure forms
// Update and Step guarantee rollback on every non-commit exit path.
//
// A committed block can be undone after the fact: RevertLast restores
// the generation that preceded it from the retained history. In-flight
// readers are unaffected by commits and reverts alike.
//
// Keys and values handed to a storage are shared across generations
// and views and must not be modified in place afterwards.
package mv

// Package machine implements the per-slot lifecycle state machine and the
// manager owning one machine per slot.
//
// A Machine validates every event against the static table in model/slot,
// keeps an immutable context value that is replaced on each change, records a
// bounded transition history and notifies an optional observer once a
// transition has been committed.
package machine

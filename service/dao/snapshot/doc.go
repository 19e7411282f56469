// Package snapshot holds the persistence backends of slot snapshots.
// Every backend implements dao.Service[int, slot.Snapshot] keyed by the
// slot index, and only the latest snapshot of each slot is kept.
package snapshot

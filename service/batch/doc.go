// Package batch executes multi-iteration tests on a slot.
//
// A test of LoopCount iterations is split into ceil(LoopCount/LoopStep)
// batches. The first batch applies the full configuration on the harness,
// every following batch only continues with the configuration already in
// place. Between batches the executor reports progress and drives the slot
// state machine through the batch events. Cancellation is cooperative: a
// per-slot flag is polled at the top of each batch and while waiting for the
// harness to finish.
package batch

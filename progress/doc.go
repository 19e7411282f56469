// Package progress defines the batch progress snapshot emitted while a slot
// works through a multi-iteration test, together with a tracker that derives
// loop counters and a remaining-time estimate from completed batches.
package progress

// Package worker provides the three-tier priority worker pool of the agent.
//
// Work submitted for the agent as a whole goes to the top queue. Work bound to
// a slot goes through the scheduler queue to the slot's own queue, whose
// single consumer guarantees that tasks of one slot never run concurrently.
// Every queue is bounded and ordered by priority, then by submission order.
package worker

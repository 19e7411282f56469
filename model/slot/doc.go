// Package slot defines the lifecycle vocabulary of a test slot: its states,
// the events that move it between states, the static transition table and the
// per-slot context record that travels with every transition.
//
// The package holds no behaviour beyond table lookups and value-level context
// merging; the stateful machine lives in runtime/machine.
package slot

// Package monitor watches the harness processes bound to slots and reports
// processes that disappear or turn into zombies while being watched.
package monitor

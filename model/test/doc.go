// Package test holds the test request model sent by the remote controller:
// loop counts, batch step, harness parameters and the optional precondition.
package test

// Package tracing wraps OpenTelemetry so that batch execution can be traced
// without the rest of the agent importing the upstream packages directly.
package tracing

// Package workflow plans registered steps into dependency levels and executes
// them with bounded parallelism, per-step timeouts and progress events.
package workflow

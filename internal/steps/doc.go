// Package steps provides executors that back configured workflow steps.
package steps

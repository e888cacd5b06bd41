package workflow

import (
	"context"
	"time"
)

// WorkflowEventType constants identify the lifecycle phase of a WorkflowEvent.
// They populate the Type field of WorkflowEvent and are consumed by the TUI
// progress view and structured log output.
const (
	// WEStepStarted is emitted just before a step is dispatched.
	WEStepStarted = "step_started"

	// WEStepCompleted is emitted when a step's executor returns successfully.
	WEStepCompleted = "step_completed"

	// WEStepFailed is emitted when a step errors, times out, panics, or has
	// no registered executor.
	WEStepFailed = "step_failed"

	// WEStepRetry is emitted before each retry attempt of a failed step.
	WEStepRetry = "step_retry"

	// WELevelStarted is emitted when the engine begins dispatching a level.
	WELevelStarted = "level_started"

	// WEWorkflowStarted is emitted once the plan is built and the run begins.
	WEWorkflowStarted = "workflow_started"

	// WEWorkflowCompleted is emitted when a run finishes with no failures.
	WEWorkflowCompleted = "workflow_completed"

	// WEWorkflowFailed is emitted when a run finishes with at least one
	// failed or unattempted step, or when planning fails.
	WEWorkflowFailed = "workflow_failed"
)

// Executor is the unit of work behind a named step. It is supplied by the
// host application and treated by the engine as opaque.
//
// The context passed to Run is cancelled when the step's timeout expires
// (ctx.Err() is context.DeadlineExceeded) or when the run is interrupted
// (context.Canceled). Cancellation is cooperative: the engine stops
// waiting at the deadline and records the step as timed out, but an executor
// that ignores ctx keeps running in the background until it returns on its
// own. Its late result is discarded.
type Executor interface {
	Run(ctx context.Context) (*ProcessingResult, error)
}

// ExecutorFunc adapts an ordinary function to the Executor interface.
type ExecutorFunc func(ctx context.Context) (*ProcessingResult, error)

// Run calls f(ctx).
func (f ExecutorFunc) Run(ctx context.Context) (*ProcessingResult, error) {
	return f(ctx)
}

// StepDefinition declares a named step, what it depends on, and how long it
// may run.
type StepDefinition struct {
	// Name is the unique identifier of the step. It must match the key the
	// definition is stored under in Config.Steps.
	Name string `json:"name" toml:"name"`

	// Description is a human-readable summary. It has no effect on scheduling.
	Description string `json:"description,omitempty" toml:"description"`

	// Dependencies lists the steps that must reach a terminal state before
	// this step may start. A step must not list itself.
	Dependencies []string `json:"dependencies,omitempty" toml:"dependencies"`

	// Timeout bounds how long the engine waits for the executor. Zero means
	// unbounded.
	Timeout time.Duration `json:"timeout,omitempty" toml:"timeout"`

	// RetryAttempts is the number of extra attempts made after a failure when
	// Config.RetryFailedSteps is enabled. Zero falls back to Config.MaxRetries.
	RetryAttempts int `json:"retry_attempts,omitempty" toml:"retry_attempts"`
}

// HasDependencies reports whether the step declares any dependencies.
func (sd StepDefinition) HasDependencies() bool {
	return len(sd.Dependencies) > 0
}

// Config is the engine's view of a workflow. NewEngine takes a deep copy, so
// the caller may reuse or mutate its value after construction.
type Config struct {
	// EnabledSteps is the ordered set of steps run when Execute is called
	// without an explicit selection.
	EnabledSteps []string `json:"enabled_steps"`

	// Steps maps step name to its definition. It must contain every name
	// reachable from EnabledSteps and from any explicit selection.
	Steps map[string]StepDefinition `json:"steps"`

	// MaxParallelSteps caps how many steps of one level run at once. Values
	// below 1 are treated as 1.
	MaxParallelSteps int `json:"max_parallel_steps"`

	// ContinueOnError keeps dispatching later levels after a level in which
	// some step failed.
	ContinueOnError bool `json:"continue_on_error"`

	// RetryFailedSteps enables re-running failed steps.
	RetryFailedSteps bool `json:"retry_failed_steps"`

	// MaxRetries is the retry budget for steps whose RetryAttempts is zero.
	MaxRetries int `json:"max_retries"`

	// RetryDelay is the pause between attempts of the same step.
	RetryDelay time.Duration `json:"retry_delay"`
}

// clone returns a deep copy of c.
func (c Config) clone() Config {
	out := c
	out.EnabledSteps = append([]string(nil), c.EnabledSteps...)
	out.Steps = make(map[string]StepDefinition, len(c.Steps))
	for name, sd := range c.Steps {
		sd.Dependencies = append([]string(nil), sd.Dependencies...)
		out.Steps[name] = sd
	}
	return out
}

// ProcessingResult is the outcome of a step or of a whole run.
type ProcessingResult struct {
	Success              bool           `json:"success"`
	ItemsProcessed       int            `json:"items_processed"`
	ItemsFailed          int            `json:"items_failed"`
	Errors               []string       `json:"errors"`
	Warnings             []string       `json:"warnings"`
	Data                 map[string]any `json:"data"`
	ExecutionTimeSeconds float64        `json:"execution_time_seconds"`
}

// NewFailedResult returns a failed ProcessingResult carrying the given error
// messages. Errors and Warnings are non-nil so JSON output renders [] rather
// than null.
func NewFailedResult(errs ...string) *ProcessingResult {
	return &ProcessingResult{
		Success:  false,
		Errors:   append([]string{}, errs...),
		Warnings: []string{},
		Data:     map[string]any{},
	}
}

// AddError appends msg to Errors and marks the result unsuccessful.
func (r *ProcessingResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Success = false
}

// AddWarning appends msg to Warnings.
func (r *ProcessingResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// WorkflowEvent is a structured message describing a lifecycle milestone of
// a run. ChannelPublisher emits these for real-time consumers such as the
// TUI progress view.
type WorkflowEvent struct {
	// Type is one of the WE* constants.
	Type string `json:"type"`

	// RunID identifies the run that produced the event.
	RunID string `json:"run_id"`

	// Step is the step the event concerns. Empty for run-level events.
	Step string `json:"step,omitempty"`

	// Level is the 1-based plan level for WELevelStarted events.
	Level int `json:"level,omitempty"`

	// Steps lists the steps of a level (WELevelStarted) or of the whole plan
	// (WEWorkflowStarted).
	Steps []string `json:"steps,omitempty"`

	// Attempt is the 1-based attempt number for WEStepRetry events.
	Attempt int `json:"attempt,omitempty"`

	// Message is a human-readable description of the event.
	Message string `json:"message"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// Error holds the failure message for WEStepFailed and WEWorkflowFailed.
	Error string `json:"error,omitempty"`
}

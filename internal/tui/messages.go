package tui

import (
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// StepState is the display state of one step in the progress view.
type StepState int

const (
	// StepPending means the step has not been dispatched yet.
	StepPending StepState = iota
	// StepRunning means the step's executor is running.
	StepRunning
	// StepRetrying means the step failed and is waiting for another attempt.
	StepRetrying
	// StepCompleted means the step finished successfully.
	StepCompleted
	// StepFailed means the step failed for good.
	StepFailed
	// StepSkipped means the run ended before the step was dispatched.
	StepSkipped
)

// stepStateStrings maps each StepState constant to its label.
var stepStateStrings = []string{
	"pending",
	"running",
	"retrying",
	"done",
	"failed",
	"skipped",
}

// String returns a human-readable label for the StepState.
// Returns "unknown" for values outside the defined range.
func (s StepState) String() string {
	if int(s) < 0 || int(s) >= len(stepStateStrings) {
		return "unknown"
	}
	return stepStateStrings[s]
}

// Terminal reports whether the state is final.
func (s StepState) Terminal() bool {
	return s == StepCompleted || s == StepFailed || s == StepSkipped
}

// WorkflowEventMsg carries an engine event into the Bubble Tea update loop.
type WorkflowEventMsg struct {
	Event workflow.WorkflowEvent
}

// RunDoneMsg is sent once Execute has returned.
type RunDoneMsg struct {
	Result *workflow.ProcessingResult
}

package workflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// WorkflowEvent type constants
// ---------------------------------------------------------------------------

func TestWorkflowEventTypeConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"WEStepStarted", WEStepStarted, "step_started"},
		{"WEStepCompleted", WEStepCompleted, "step_completed"},
		{"WEStepFailed", WEStepFailed, "step_failed"},
		{"WEStepRetry", WEStepRetry, "step_retry"},
		{"WELevelStarted", WELevelStarted, "level_started"},
		{"WEWorkflowStarted", WEWorkflowStarted, "workflow_started"},
		{"WEWorkflowCompleted", WEWorkflowCompleted, "workflow_completed"},
		{"WEWorkflowFailed", WEWorkflowFailed, "workflow_failed"},
	}

	seen := make(map[string]struct{}, len(tests))
	for _, tt := range tests {
		_, duplicate := seen[tt.got]
		assert.False(t, duplicate, "duplicate event type constant: %q", tt.got)
		seen[tt.got] = struct{}{}

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

// ---------------------------------------------------------------------------
// WorkflowEvent JSON
// ---------------------------------------------------------------------------

func TestWorkflowEvent_JSONStructTags(t *testing.T) {
	t.Parallel()

	ev := WorkflowEvent{
		Type:      WEStepFailed,
		RunID:     "run-1",
		Step:      "applications",
		Message:   "step failed",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Error:     "boom",
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"type", "run_id", "step", "message", "timestamp", "error"} {
		assert.Contains(t, raw, key)
	}
	for _, key := range []string{"level", "steps", "attempt"} {
		assert.NotContains(t, raw, key, "zero %s must be omitted", key)
	}
}

// ---------------------------------------------------------------------------
// Executor / StepDefinition / Config
// ---------------------------------------------------------------------------

func TestExecutorFunc_Run(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	var got any
	fn := ExecutorFunc(func(ctx context.Context) (*ProcessingResult, error) {
		got = ctx.Value(ctxKey{})
		return &ProcessingResult{Success: true, ItemsProcessed: 7}, nil
	})

	var ex Executor = fn
	res, err := ex.Run(context.WithValue(context.Background(), ctxKey{}, "v"))
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, 7, res.ItemsProcessed)
}

func TestStepDefinition_HasDependencies(t *testing.T) {
	t.Parallel()

	assert.False(t, StepDefinition{Name: "a"}.HasDependencies())
	assert.False(t, StepDefinition{Name: "a", Dependencies: []string{}}.HasDependencies())
	assert.True(t, StepDefinition{Name: "b", Dependencies: []string{"a"}}.HasDependencies())
}

func TestConfig_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := Config{
		EnabledSteps: []string{"a", "b"},
		Steps: map[string]StepDefinition{
			"a": {Name: "a"},
			"b": {Name: "b", Dependencies: []string{"a"}},
		},
		MaxParallelSteps: 3,
		RetryDelay:       time.Second,
	}
	cp := orig.clone()
	require.Equal(t, orig, cp)

	cp.EnabledSteps[0] = "x"
	cp.Steps["b"].Dependencies[0] = "x"
	cp.Steps["c"] = StepDefinition{Name: "c"}

	assert.Equal(t, "a", orig.EnabledSteps[0])
	assert.Equal(t, []string{"a"}, orig.Steps["b"].Dependencies)
	assert.NotContains(t, orig.Steps, "c")
}

// ---------------------------------------------------------------------------
// ProcessingResult
// ---------------------------------------------------------------------------

func TestNewFailedResult(t *testing.T) {
	t.Parallel()

	r := NewFailedResult("one", "two")
	assert.False(t, r.Success)
	assert.Equal(t, []string{"one", "two"}, r.Errors)
	assert.NotNil(t, r.Warnings)
	assert.NotNil(t, r.Data)

	empty := NewFailedResult()
	assert.NotNil(t, empty.Errors)
	assert.Empty(t, empty.Errors)
}

func TestProcessingResult_AddErrorAndWarning(t *testing.T) {
	t.Parallel()

	r := &ProcessingResult{Success: true}
	r.AddWarning("careful")
	assert.True(t, r.Success, "a warning must not fail the result")
	r.AddError("broken")
	assert.False(t, r.Success)
	assert.Equal(t, []string{"broken"}, r.Errors)
	assert.Equal(t, []string{"careful"}, r.Warnings)
}

func TestProcessingResult_JSONEmptySlices(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewFailedResult())
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"errors":[]`)
	assert.Contains(t, s, `"warnings":[]`)
	assert.Contains(t, s, `"execution_time_seconds":0`)
}

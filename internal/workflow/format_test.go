package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogConfig() Config {
	steps := catalogDefinitions()
	sd := steps["sdc_template"]
	sd.Description = "Build the SDC import template"
	sd.Timeout = 10 * time.Minute
	steps["sdc_template"] = sd
	return Config{
		EnabledSteps:     []string{"applications", "marketing_descriptions", "popularity_codes", "sdc_template", "validation_reports"},
		Steps:            steps,
		MaxParallelSteps: 2,
		RetryFailedSteps: true,
		MaxRetries:       1,
	}
}

func TestPlanFormatter_FormatPlan_Plain(t *testing.T) {
	t.Parallel()

	cfg := catalogConfig()
	plan, err := BuildPlan(cfg.Steps, cfg.EnabledSteps)
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register("applications", succeed())

	out := NewPlanFormatter(nil, false).FormatPlan(plan, cfg, reg)

	assert.True(t, strings.HasPrefix(out, "Workflow Plan\n=============\n\n"))
	assert.Contains(t, out, "Level 1 (3 steps), up to 2 in parallel")
	assert.Contains(t, out, "Level 2 (2 steps), up to 2 in parallel")
	assert.Contains(t, out, "  1. applications: step 1\n")
	assert.Contains(t, out, "  4. sdc_template: Build the SDC import template\n")
	assert.Contains(t, out, "     -> depends on: marketing_descriptions, popularity_codes\n")
	assert.Contains(t, out, "     -> timeout: 10m0s\n")
	assert.Contains(t, out, "     -> retries: 1\n")
	assert.Equal(t, 4, strings.Count(out, "[NO EXECUTOR]"))
	assert.Contains(t, out, "Total: 5 steps in 2 levels (stop on first failing level)\n")
	assert.NotContains(t, out, "\x1b[", "plain output must not contain ANSI escapes")
}

func TestPlanFormatter_FormatPlan_SingleStepLevel(t *testing.T) {
	t.Parallel()

	cfg := Config{Steps: map[string]StepDefinition{"a": {Name: "a"}}, ContinueOnError: true}
	out := NewPlanFormatter(nil, false).FormatPlan(Plan{{"a"}}, cfg, nil)
	assert.Contains(t, out, "Level 1 (1 step)\n")
	assert.NotContains(t, out, "NO EXECUTOR", "registry is optional")
	assert.NotContains(t, out, "retries")
	assert.Contains(t, out, "(continue on error)")
}

func TestPlanFormatter_FormatPlan_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No steps selected.\n", NewPlanFormatter(nil, false).FormatPlan(nil, Config{}, nil))
}

func TestPlanFormatter_FormatResult(t *testing.T) {
	t.Parallel()

	cfg := twoLevelConfig()
	e := NewEngine(cfg)
	e.Register("A", succeed())
	e.Register("B", fail("boom"))
	e.Register("C", succeed())
	result := e.Execute(context.Background(), nil)

	out := NewPlanFormatter(nil, false).FormatResult(result)
	assert.Contains(t, out, "Workflow Result: FAILED\n")
	assert.Contains(t, out, "Run:")
	assert.Contains(t, out, "Completed (1):")
	assert.Contains(t, out, "Failed (1):")
	assert.Contains(t, out, "Skipped (1):")
	assert.Contains(t, out, "Success rate: 50.0%")
	assert.Contains(t, out, "Errors (1):\n  - step \"B\" failed: boom\n")
	assert.Contains(t, out, "Warnings (1):\n  - step \"C\" was not attempted\n")
}

func TestPlanFormatter_FormatResult_AfterJSONRoundTrip(t *testing.T) {
	t.Parallel()

	e := NewEngine(twoLevelConfig())
	registerAll(e, succeed(), "A", "B", "C")
	data, err := json.Marshal(e.Execute(context.Background(), nil))
	require.NoError(t, err)

	var decoded ProcessingResult
	require.NoError(t, json.Unmarshal(data, &decoded))

	out := NewPlanFormatter(nil, false).FormatResult(&decoded)
	assert.Contains(t, out, "Workflow Result: SUCCESS\n")
	assert.Contains(t, out, "Completed (3):")
	assert.Contains(t, out, "Success rate: 100.0%")
}

func TestPlanFormatter_FormatResult_PlanningFailure(t *testing.T) {
	t.Parallel()

	out := NewPlanFormatter(nil, false).FormatResult(NewFailedResult("unknown workflow steps: ghost"))
	assert.Contains(t, out, "FAILED")
	assert.NotContains(t, out, "Completed")
	assert.Contains(t, out, "unknown workflow steps: ghost")
}

func TestPlanFormatter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := NewPlanFormatter(&buf, true)
	f.Write(f.FormatPlan(Plan{{"a"}}, Config{Steps: map[string]StepDefinition{"a": {Name: "a"}}}, nil))
	assert.Contains(t, buf.String(), "a: step 1")
}

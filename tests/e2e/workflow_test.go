package e2e_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_DiamondSucceeds(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(diamondConfig)

	var res runResult
	code := tp.runJSON(&res, "run", "--json")
	require.Equal(t, 0, code)

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Data.RunID)
	assert.Equal(t, [][]string{{"fetch"}, {"clean", "price"}, {"report"}}, res.Data.Plan)
	assert.ElementsMatch(t, []string{"fetch", "clean", "price", "report"}, res.Data.CompletedSteps)
	assert.Equal(t, 42, res.Data.StepResults["report"].ItemsProcessed)
	assert.Equal(t, []string{"2 rows skipped"}, res.Data.StepResults["report"].Warnings)

	data, err := os.ReadFile(filepath.Join(tp.Dir, "trace.log"))
	require.NoError(t, err)
	lines := strings.Fields(string(data))
	require.Len(t, lines, 4)
	assert.Equal(t, "fetch", lines[0])
	assert.ElementsMatch(t, []string{"clean", "price"}, lines[1:3])
	assert.Equal(t, "report", lines[3])
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(strings.Replace(diamondConfig,
		`args = ["-c", "echo price >> trace.log"]`,
		`args = ["-c", "echo price failed >&2; exit 4"]`, 1))

	var res runResult
	code := tp.runJSON(&res, "run", "--json")
	assert.Equal(t, 2, code)

	assert.False(t, res.Success)
	assert.Contains(t, res.Data.FailedSteps, "price")
	assert.Equal(t, []string{"report"}, res.Data.SkippedSteps)
	assert.NotEmpty(t, res.Errors)
}

func TestRun_StepTimeout(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(`
[workflow]
enabled_steps = ["slow", "after"]
continue_on_error = false

[steps.slow]
command = "sh"
args = ["-c", "sleep 10"]
timeout = "500ms"

[steps.after]
dependencies = ["slow"]
command = "true"
`)

	var res runResult
	code := tp.runJSON(&res, "run", "--json")
	assert.Equal(t, 2, code)
	assert.Equal(t, []string{"slow"}, res.Data.FailedSteps)
	assert.Equal(t, []string{"after"}, res.Data.SkippedSteps)
	assert.Contains(t, strings.Join(res.Errors, "\n"), "timed out")
}

func TestRun_SelectionAndDryRun(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(diamondConfig)

	out := tp.runExpectSuccess("--dry-run", "run")
	assert.Contains(t, out, "Level 1")
	_, err := os.Stat(filepath.Join(tp.Dir, "trace.log"))
	assert.True(t, os.IsNotExist(err), "dry run must not execute steps")

	var res runResult
	code := tp.runJSON(&res, "run", "--json", "--steps", "fetch,clean")
	require.Equal(t, 0, code)
	assert.Equal(t, [][]string{{"fetch"}, {"clean"}}, res.Data.Plan)

	out, code = tp.runExpectFailure("run", "--steps", "report")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "cannot resolve dependencies")
}

func TestPlanCommandJSON(t *testing.T) {
	t.Parallel()

	tp := newTestProject(t)
	tp.writeConfig(diamondConfig)

	var plan struct {
		Levels      [][]string `json:"levels"`
		Steps       int        `json:"steps"`
		Fingerprint string     `json:"fingerprint"`
	}
	code := tp.runJSON(&plan, "plan", "--json")
	require.Equal(t, 0, code)
	assert.Equal(t, 4, plan.Steps)
	assert.Len(t, plan.Levels, 3)
	assert.NotEmpty(t, plan.Fingerprint)
}

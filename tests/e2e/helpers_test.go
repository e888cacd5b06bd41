package e2e_test

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject is an isolated directory holding a partflow.toml and the
// freshly built binary.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject builds the partflow binary into a fresh temp directory and
// returns a testProject ready for use.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("E2E tests with sh step commands are not supported on Windows")
	}

	dir := t.TempDir()

	binary := filepath.Join(dir, "partflow")
	build := exec.Command("go", "build", "-o", binary, "./cmd/partflow")
	build.Dir = projectRoot()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "building partflow: %s", string(out))

	return &testProject{Dir: dir, BinaryPath: binary, t: t}
}

// projectRoot returns the absolute path to the repository root, two
// directories above this file.
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeConfig writes content to partflow.toml in tp.Dir.
func (tp *testProject) writeConfig(content string) {
	tp.t.Helper()
	err := os.WriteFile(filepath.Join(tp.Dir, "partflow.toml"), []byte(content), 0o644)
	require.NoError(tp.t, err)
}

// run creates an exec.Cmd for partflow rooted at tp.Dir.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",
		"PARTFLOW_LOG_FORMAT=json",
	)
	return cmd
}

// runExpectSuccess runs partflow and asserts exit code 0.
// Returns combined stdout+stderr output.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.NoError(tp.t, err, "partflow %v failed:\n%s", args, string(out))
	return string(out)
}

// runExpectFailure runs partflow and asserts a non-zero exit code.
// Returns combined output and the exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.Error(tp.t, err, "partflow %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}

// runJSON runs partflow with stdout captured separately, decodes stdout
// into v and returns the exit code.
func (tp *testProject) runJSON(v any, args ...string) int {
	tp.t.Helper()
	cmd := tp.run(args...)
	stdout, err := cmd.Output()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		require.True(tp.t, errors.As(err, &exitErr), "partflow %v: %v", args, err)
		code = exitErr.ExitCode()
	}
	require.NoError(tp.t, json.Unmarshal(stdout, v), "decoding output of partflow %v:\n%s", args, stdout)
	return code
}

// runResult is the subset of a --json run result the tests inspect.
type runResult struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
	Data    struct {
		RunID          string     `json:"run_id"`
		Plan           [][]string `json:"plan"`
		CompletedSteps []string   `json:"completed_steps"`
		FailedSteps    []string   `json:"failed_steps"`
		SkippedSteps   []string   `json:"skipped_steps"`
		StepResults    map[string]struct {
			Success        bool     `json:"success"`
			ItemsProcessed int      `json:"items_processed"`
			Warnings       []string `json:"warnings"`
		} `json:"step_results"`
	} `json:"data"`
}

// diamondConfig is a four-step diamond where every step appends its name to
// trace.log and "report" prints a step report.
const diamondConfig = `
[project]
name = "diamond"

[workflow]
enabled_steps = ["fetch", "clean", "price", "report"]
max_parallel_steps = 2
continue_on_error = false
default_timeout = "30s"

[steps.fetch]
command = "sh"
args = ["-c", "echo fetch >> trace.log"]

[steps.clean]
dependencies = ["fetch"]
command = "sh"
args = ["-c", "echo clean >> trace.log"]

[steps.price]
dependencies = ["fetch"]
command = "sh"
args = ["-c", "echo price >> trace.log"]

[steps.report]
dependencies = ["clean", "price"]
command = "sh"
args = ["-c", "echo report >> trace.log; echo '{\"items_processed\": 42, \"warnings\": [\"2 rows skipped\"]}'"]
`

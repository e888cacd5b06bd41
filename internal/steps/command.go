package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// Compile-time check that CommandExecutor implements workflow.Executor.
var _ workflow.Executor = (*CommandExecutor)(nil)

// commandLogger is the minimal logging interface required by CommandExecutor.
// It accepts a message and structured key-value pairs.
type commandLogger interface {
	Debug(msg string, keyvals ...interface{})
}

// maxOutputTail is the number of trailing bytes of stdout and stderr kept in
// the step result's Data.
const maxOutputTail = 4 * 1024

// killGracePeriod bounds how long Run waits for output pipes to drain after
// the process has been killed.
const killGracePeriod = 3 * time.Second

// StepEnvVar is set in every command's environment to the name of the step
// being run.
const StepEnvVar = "PARTFLOW_STEP"

// CommandSpec describes an external program run as a workflow step.
type CommandSpec struct {
	// Command is the executable, resolved through PATH when it has no slash.
	Command string

	// Args are passed to Command verbatim, without shell interpretation.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env entries ("KEY=value") are appended to the inherited environment.
	Env []string
}

// String renders the command line for display.
func (s CommandSpec) String() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return s.Command + " " + strings.Join(s.Args, " ")
}

// CommandExecutor runs a CommandSpec as a workflow step. The process is
// started in its own process group so that a step timeout or interrupt kills
// the whole tree, not only the direct child.
//
// A zero exit status is success. A non-zero exit, a failure to start, or a
// cancelled context is returned as an error. When the command prints a JSON
// summary object (see ParseReport) its counts and messages populate the
// result.
type CommandExecutor struct {
	name   string
	spec   CommandSpec
	logger commandLogger
}

// NewCommandExecutor creates an executor for the step name. logger may be
// nil.
func NewCommandExecutor(name string, spec CommandSpec, logger commandLogger) *CommandExecutor {
	return &CommandExecutor{name: name, spec: spec, logger: logger}
}

// Spec returns the command the executor runs.
func (c *CommandExecutor) Spec() CommandSpec {
	return c.spec
}

// Run implements workflow.Executor.
func (c *CommandExecutor) Run(ctx context.Context) (*workflow.ProcessingResult, error) {
	if c.spec.Command == "" {
		return nil, fmt.Errorf("step %q: no command configured", c.name)
	}

	start := time.Now()
	cmd := c.buildCommand(ctx)

	if c.logger != nil {
		c.logger.Debug("running step command",
			"step", c.name,
			"command", cmd.Path,
			"args", cmd.Args,
			"work_dir", cmd.Dir,
		)
	}

	var stdout, stderr syncBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("command %q interrupted: %w", c.spec.Command, ctxErr)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("starting %q: %w", c.spec.Command, runErr)
		}
		exitCode = exitErr.ExitCode()
		msg := lastLine(stderr.String())
		if msg == "" {
			msg = lastLine(stdout.String())
		}
		if msg == "" {
			return nil, fmt.Errorf("command %q exited with code %d", c.spec.Command, exitCode)
		}
		return nil, fmt.Errorf("command %q exited with code %d: %s", c.spec.Command, exitCode, msg)
	}

	if c.logger != nil {
		c.logger.Debug("step command finished",
			"step", c.name,
			"exit_code", exitCode,
			"duration", duration,
		)
	}

	result := &workflow.ProcessingResult{
		Success:  true,
		Errors:   []string{},
		Warnings: []string{},
		Data: map[string]any{
			"command":   c.spec.String(),
			"exit_code": exitCode,
			"stdout":    tail(stdout.String(), maxOutputTail),
			"stderr":    tail(stderr.String(), maxOutputTail),
		},
		ExecutionTimeSeconds: duration.Seconds(),
	}
	if report, ok := ParseReport(stdout.String()); ok {
		report.Apply(result)
	}
	return result, nil
}

// buildCommand constructs the *exec.Cmd: inherited environment, then the
// step marker, then the configured entries so they win on conflict.
func (c *CommandExecutor) buildCommand(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.spec.Command, c.spec.Args...)
	if c.spec.Dir != "" {
		cmd.Dir = c.spec.Dir
	}

	env := os.Environ()
	env = append(env, StepEnvVar+"="+c.name)
	env = append(env, c.spec.Env...)
	cmd.Env = env

	setProcGroup(cmd)
	return cmd
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes exec performs
// when Stdout and Stderr are copied on separate goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// lastLine returns the last non-empty line of s, trimmed.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// tail returns at most n trailing bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

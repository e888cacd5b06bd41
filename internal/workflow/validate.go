package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Issue code constants classify each ValidationIssue by its structural category.
// Codes are stable strings so callers can switch on them without importing
// numeric iota values.
const (
	// IssueNoSteps is reported when the configuration defines no steps.
	IssueNoSteps = "NO_STEPS"

	// IssueEmptyStepName is reported when a step is stored under, or declares,
	// an empty name.
	IssueEmptyStepName = "EMPTY_STEP_NAME"

	// IssueNameMismatch is reported when a definition's Name differs from the
	// key it is stored under in Config.Steps.
	IssueNameMismatch = "NAME_MISMATCH"

	// IssueSelfDependency is reported when a step lists itself as a
	// dependency.
	IssueSelfDependency = "SELF_DEPENDENCY"

	// IssueUnknownDependency is reported when a dependency names a step that
	// has no definition.
	IssueUnknownDependency = "UNKNOWN_DEPENDENCY"

	// IssueCycleDetected is reported when the dependency graph contains a
	// directed cycle. Unlike loops in a state machine, a dependency cycle can
	// never be scheduled, so it is an error.
	IssueCycleDetected = "CYCLE_DETECTED"

	// IssueUnknownEnabledStep is reported when EnabledSteps names a step that
	// has no definition.
	IssueUnknownEnabledStep = "UNKNOWN_ENABLED_STEP"

	// IssueInvalidParallelism is reported when MaxParallelSteps is below 1.
	IssueInvalidParallelism = "INVALID_PARALLELISM"

	// IssueNegativeTimeout is reported when a step has a negative timeout.
	IssueNegativeTimeout = "NEGATIVE_TIMEOUT"

	// IssueNegativeRetries is reported when MaxRetries or a step's
	// RetryAttempts is negative.
	IssueNegativeRetries = "NEGATIVE_RETRIES"

	// IssueMissingExecutor is reported (only when a Registry is provided) when
	// an enabled step has no registered Executor. It is a warning because the
	// engine tolerates it: the step simply fails at run time.
	IssueMissingExecutor = "MISSING_EXECUTOR"
)

// ValidationIssue describes a single structural problem found in a Config.
// Issues with a non-empty Step field are associated with a specific step;
// others are configuration-level concerns.
type ValidationIssue struct {
	// Code is one of the Issue* constants identifying the problem category.
	Code string `json:"code"`

	// Step is the name of the step involved in the issue, or empty string for
	// configuration-level issues.
	Step string `json:"step,omitempty"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`
}

// ValidationResult holds the outcome of validating a Config. Errors are
// fatal: planning would fail or misbehave. Warnings are non-fatal.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// IsValid reports whether the configuration has no errors. Warnings alone do
// not make a configuration invalid.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// String returns a multi-line human-readable summary of all validation issues.
// The format is:
//
//	Errors (N):
//	  [ERROR_CODE] step "stepname": message
//	Warnings (N):
//	  [WARN_CODE] step "stepname": message
func (r *ValidationResult) String() string {
	var b strings.Builder
	writeIssues(&b, "Errors", r.Errors)
	writeIssues(&b, "Warnings", r.Warnings)
	return b.String()
}

func writeIssues(b *strings.Builder, title string, issues []ValidationIssue) {
	fmt.Fprintf(b, "%s (%d):\n", title, len(issues))
	for _, issue := range issues {
		if issue.Step != "" {
			fmt.Fprintf(b, "  [%s] step %q: %s\n", issue.Code, issue.Step, issue.Message)
		} else {
			fmt.Fprintf(b, "  [%s] %s\n", issue.Code, issue.Message)
		}
	}
}

func (r *ValidationResult) addError(code, step, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationIssue{Code: code, Step: step, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarning(code, step, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationIssue{Code: code, Step: step, Message: fmt.Sprintf(format, args...)})
}

// ValidateConfig checks cfg ahead of planning. If registry is non-nil,
// executor registration of the enabled steps is also checked. The function
// always returns a non-nil ValidationResult, and issues are reported in a
// deterministic order.
//
// Validation sequence:
//  1. Global checks: no steps, parallelism and retry bounds.
//  2. Per-step checks in name order: empty names, name mismatch, negative
//     timeouts and retries, self and unknown dependencies.
//  3. EnabledSteps must all be defined.
//  4. Cycle detection: DFS three-color marking over the dependency graph.
//  5. Executor checks (only when registry != nil).
func ValidateConfig(cfg *Config, registry *Registry) *ValidationResult {
	result := &ValidationResult{Errors: []ValidationIssue{}, Warnings: []ValidationIssue{}}

	if cfg == nil || len(cfg.Steps) == 0 {
		result.addError(IssueNoSteps, "", "workflow configuration has no steps")
		return result
	}
	if cfg.MaxParallelSteps < 1 {
		result.addError(IssueInvalidParallelism, "", "max_parallel_steps must be at least 1, got %d", cfg.MaxParallelSteps)
	}
	if cfg.MaxRetries < 0 {
		result.addError(IssueNegativeRetries, "", "max_retries must not be negative, got %d", cfg.MaxRetries)
	}

	names := make([]string, 0, len(cfg.Steps))
	for name := range cfg.Steps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sd := cfg.Steps[name]
		if name == "" {
			result.addError(IssueEmptyStepName, "", "a step is defined with an empty name")
			continue
		}
		if sd.Name != "" && sd.Name != name {
			result.addError(IssueNameMismatch, name, "definition name %q does not match its key", sd.Name)
		}
		if sd.Timeout < 0 {
			result.addError(IssueNegativeTimeout, name, "timeout must not be negative, got %s", sd.Timeout)
		}
		if sd.RetryAttempts < 0 {
			result.addError(IssueNegativeRetries, name, "retry_attempts must not be negative, got %d", sd.RetryAttempts)
		}
		for _, dep := range sd.Dependencies {
			switch {
			case dep == name:
				result.addError(IssueSelfDependency, name, "step %q depends on itself", name)
			case dep == "":
				result.addError(IssueEmptyStepName, name, "dependency list contains an empty name")
			default:
				if _, ok := cfg.Steps[dep]; !ok {
					result.addError(IssueUnknownDependency, name, "dependency %q is not defined", dep)
				}
			}
		}
	}

	for _, name := range cfg.EnabledSteps {
		if _, ok := cfg.Steps[name]; !ok {
			result.addError(IssueUnknownEnabledStep, name, "enabled step %q is not defined", name)
		}
	}

	for _, cycle := range findCycles(cfg.Steps, names) {
		result.addError(IssueCycleDetected, cycle[0], "cycle detected involving steps: %s", strings.Join(cycle, " -> "))
	}

	if registry != nil {
		for _, name := range cfg.EnabledSteps {
			if _, ok := cfg.Steps[name]; !ok {
				continue
			}
			if !registry.Has(name) {
				result.addWarning(IssueMissingExecutor, name, "step %q has no registered executor and will fail when run", name)
			}
		}
	}

	return result
}

// findCycles walks the dependency graph depth-first with three-color marking
// and returns one closed path per back-edge target. Self-dependencies and
// unknown dependencies are skipped; they are reported separately.
func findCycles(steps map[string]StepDefinition, names []string) [][]string {
	const (
		colorWhite = 0
		colorGray  = 1
		colorBlack = 2
	)

	color := make(map[string]int, len(names))
	reported := make(map[string]bool)
	var cycles [][]string

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		color[node] = colorGray
		path = append(path, node)

		deps := append([]string(nil), steps[node].Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			if dep == node {
				continue
			}
			if _, ok := steps[dep]; !ok {
				continue
			}
			switch color[dep] {
			case colorGray:
				if reported[dep] {
					continue
				}
				reported[dep] = true
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle := append([]string{}, path[start:]...)
				cycles = append(cycles, append(cycle, dep))
			case colorWhite:
				dfs(dep, path)
			}
		}

		color[node] = colorBlack
	}

	for _, name := range names {
		if name != "" && color[name] == colorWhite {
			dfs(name, nil)
		}
	}
	return cycles
}

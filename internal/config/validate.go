package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity `json:"severity"`
	Field    string             `json:"field"` // dotted path, e.g., "workflow.max_parallel_steps"
	Message  string             `json:"message"`
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue `json:"issues"`
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

// Validate checks the configuration for correctness and completeness.
// It performs field-level checks, unknown key detection, and then the
// structural checks of workflow.ValidateConfig (dependency graph, enabled
// steps, parallelism) on the converted configuration.
//
// Parameters:
//   - cfg: the configuration to validate
//   - meta: TOML metadata from BurntSushi/toml (may be nil if no file was loaded)
//   - baseDir: directory relative step dirs are resolved against
//
// Returns validation results. Check HasErrors() to determine if the config is usable.
func Validate(cfg *Config, meta *toml.MetaData, baseDir string) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateProject(vr, &cfg.Project, baseDir)
	validateWorkflow(vr, &cfg.Workflow)
	validateSteps(vr, cfg, baseDir)
	validateUnknownKeys(vr, meta)
	validateStructure(vr, cfg)

	return vr
}

// validateProject checks the [project] section.
func validateProject(vr *ValidationResult, p *ProjectConfig, baseDir string) {
	// Warning: output_dir does not exist yet.
	if p.OutputDir != "" {
		if _, err := os.Stat(resolvePath(baseDir, p.OutputDir)); err != nil {
			addWarning(vr, "project.output_dir",
				fmt.Sprintf("directory %q does not exist", p.OutputDir))
		}
	}
}

// validateWorkflow checks the [workflow] section.
func validateWorkflow(vr *ValidationResult, w *WorkflowConfig) {
	if _, err := parseDuration(w.DefaultTimeout); err != nil {
		addError(vr, "workflow.default_timeout", err.Error())
	}
	if _, err := parseDuration(w.RetryDelay); err != nil {
		addError(vr, "workflow.retry_delay", err.Error())
	}
	if w.RetryFailedStepsValue() && w.MaxRetriesValue() == 0 {
		addWarning(vr, "workflow.max_retries",
			"retry_failed_steps is enabled but max_retries is 0; only steps with retry_attempts will be retried")
	}
}

// validateSteps checks every [steps.*] section.
func validateSteps(vr *ValidationResult, cfg *Config, baseDir string) {
	for _, name := range cfg.StepNames() {
		step := cfg.Steps[name]
		prefix := "steps." + name

		if _, err := parseDuration(step.Timeout); err != nil {
			addError(vr, prefix+".timeout", err.Error())
		}

		for i, entry := range step.Env {
			if !strings.Contains(entry, "=") || strings.HasPrefix(entry, "=") {
				addError(vr, fmt.Sprintf("%s.env[%d]", prefix, i),
					fmt.Sprintf("entry %q must have the form KEY=value", entry))
			}
		}

		if step.Command == "" {
			if len(step.Args) > 0 {
				addError(vr, prefix+".args", "args are set but command is empty")
			}
			addWarning(vr, prefix+".command",
				"no command configured; the step fails unless an executor is registered for it")
		}

		// Warning: dir does not exist.
		if step.Dir != "" {
			if _, err := os.Stat(resolvePath(baseDir, step.Dir)); err != nil {
				addWarning(vr, prefix+".dir",
					fmt.Sprintf("directory %q does not exist", step.Dir))
			}
		}
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// validateStructure runs workflow.ValidateConfig on the converted
// configuration. It is skipped when conversion fails, since the duration
// errors are already reported field by field.
func validateStructure(vr *ValidationResult, cfg *Config) {
	wc, err := cfg.ToWorkflow()
	if err != nil {
		return
	}

	result := workflow.ValidateConfig(&wc, nil)
	for _, issue := range result.Errors {
		addError(vr, structureField(issue), fmt.Sprintf("[%s] %s", issue.Code, issue.Message))
	}
	for _, issue := range result.Warnings {
		addWarning(vr, structureField(issue), fmt.Sprintf("[%s] %s", issue.Code, issue.Message))
	}
}

// structureField maps a workflow validation issue to the config field it
// most likely stems from.
func structureField(issue workflow.ValidationIssue) string {
	switch issue.Code {
	case workflow.IssueInvalidParallelism:
		return "workflow.max_parallel_steps"
	case workflow.IssueUnknownEnabledStep:
		return "workflow.enabled_steps"
	case workflow.IssueNoSteps:
		return "steps"
	case workflow.IssueSelfDependency, workflow.IssueUnknownDependency:
		return "steps." + issue.Step + ".dependencies"
	case workflow.IssueNegativeTimeout:
		return "steps." + issue.Step + ".timeout"
	case workflow.IssueNegativeRetries:
		if issue.Step == "" {
			return "workflow.max_retries"
		}
		return "steps." + issue.Step + ".retry_attempts"
	}
	if issue.Step != "" {
		return "steps." + issue.Step
	}
	return "workflow"
}

// resolvePath joins a relative path onto baseDir.
func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}

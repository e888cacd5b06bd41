package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from the partflow.toml config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// Environment variables read by Resolve.
const (
	EnvProjectName     = "PARTFLOW_PROJECT_NAME"
	EnvOutputDir       = "PARTFLOW_OUTPUT_DIR"
	EnvEnabledSteps    = "PARTFLOW_ENABLED_STEPS"
	EnvMaxParallel     = "PARTFLOW_MAX_PARALLEL"
	EnvContinueOnError = "PARTFLOW_CONTINUE_ON_ERROR"
	EnvDefaultTimeout  = "PARTFLOW_DEFAULT_TIMEOUT"
)

// ResolvedConfig holds the fully-resolved configuration with source tracking.
// The Config field contains the merged values; Sources tracks where each came from.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is dotted path, e.g., "workflow.max_parallel_steps"
	Path    string                  // path to the config file used (empty if none)

	// Warnings lists environment values that were present but could not be
	// parsed and were therefore ignored.
	Warnings []string
}

// CLIOverrides captures flag values that can override configuration.
// Nil values mean "not set" (do not override).
type CLIOverrides struct {
	ProjectName      *string
	OutputDir        *string
	EnabledSteps     []string
	MaxParallelSteps *int
	ContinueOnError  *bool
	RetryFailedSteps *bool
}

// EnvFunc is a function that looks up environment variables.
// Default implementation is os.LookupEnv. Injected for testability.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration from all sources in priority order:
// CLI flags > environment variables > config file > defaults.
//
// Parameters:
//   - defaults: built-in default config (from NewDefaults())
//   - fileConfig: parsed config from partflow.toml (nil if no file found)
//   - envFn: function to look up environment variables
//   - overrides: CLI flag values (nil fields mean "not set")
//
// Returns the fully-resolved config with source annotations.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}

	if defaults == nil {
		defaults = &Config{}
	}
	if envFn == nil {
		envFn = func(string) (string, bool) { return "", false }
	}
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	// Layer 1: defaults.
	resolveProjectFromDefaults(rc, defaults)
	resolveWorkflowFromDefaults(rc, defaults)
	resolveStepsFromDefaults(rc, defaults)

	// Layer 2: file. Empty strings and nil pointers mean "not set in file";
	// step tables replace the default step of the same name as a whole.
	if fileConfig != nil {
		resolveProjectFromFile(rc, fileConfig)
		resolveWorkflowFromFile(rc, fileConfig)
		resolveStepsFromFile(rc, fileConfig)
	}

	// Layer 3: environment.
	resolveFromEnv(rc, envFn)

	// Layer 4: CLI overrides.
	resolveFromCLI(rc, overrides)

	return rc
}

// StepNames returns the names of all configured steps in sorted order.
func (c *Config) StepNames() []string {
	names := make([]string, 0, len(c.Steps))
	for name := range c.Steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Layer 1: Defaults ---

func resolveProjectFromDefaults(rc *ResolvedConfig, defaults *Config) {
	p := &rc.Config.Project
	d := &defaults.Project

	setString(&p.Name, d.Name, "project.name", SourceDefault, rc.Sources)
	setString(&p.OutputDir, d.OutputDir, "project.output_dir", SourceDefault, rc.Sources)
}

func resolveWorkflowFromDefaults(rc *ResolvedConfig, defaults *Config) {
	w := &rc.Config.Workflow
	d := &defaults.Workflow

	w.EnabledSteps = copyStrings(d.EnabledSteps)
	rc.Sources["workflow.enabled_steps"] = SourceDefault

	w.MaxParallelSteps = d.MaxParallelSteps
	rc.Sources["workflow.max_parallel_steps"] = SourceDefault

	w.ContinueOnError = boolPtr(d.ContinueOnErrorValue())
	rc.Sources["workflow.continue_on_error"] = SourceDefault

	setString(&w.DefaultTimeout, d.DefaultTimeout, "workflow.default_timeout", SourceDefault, rc.Sources)

	w.RetryFailedSteps = boolPtr(d.RetryFailedStepsValue())
	rc.Sources["workflow.retry_failed_steps"] = SourceDefault

	w.MaxRetries = intPtr(d.MaxRetriesValue())
	rc.Sources["workflow.max_retries"] = SourceDefault

	setString(&w.RetryDelay, d.RetryDelay, "workflow.retry_delay", SourceDefault, rc.Sources)
}

func resolveStepsFromDefaults(rc *ResolvedConfig, defaults *Config) {
	rc.Config.Steps = make(map[string]StepConfig, len(defaults.Steps))
	for name, step := range defaults.Steps {
		rc.Config.Steps[name] = copyStepConfig(step)
		rc.Sources["steps."+name] = SourceDefault
	}
}

// --- Layer 2: File ---

func resolveProjectFromFile(rc *ResolvedConfig, file *Config) {
	p := &rc.Config.Project
	f := &file.Project

	mergeString(&p.Name, f.Name, "project.name", SourceFile, rc.Sources)
	mergeString(&p.OutputDir, f.OutputDir, "project.output_dir", SourceFile, rc.Sources)
}

func resolveWorkflowFromFile(rc *ResolvedConfig, file *Config) {
	w := &rc.Config.Workflow
	f := &file.Workflow

	if len(f.EnabledSteps) > 0 {
		w.EnabledSteps = copyStrings(f.EnabledSteps)
		rc.Sources["workflow.enabled_steps"] = SourceFile
	}
	if f.MaxParallelSteps != 0 {
		w.MaxParallelSteps = f.MaxParallelSteps
		rc.Sources["workflow.max_parallel_steps"] = SourceFile
	}
	if f.ContinueOnError != nil {
		w.ContinueOnError = boolPtr(*f.ContinueOnError)
		rc.Sources["workflow.continue_on_error"] = SourceFile
	}
	mergeString(&w.DefaultTimeout, f.DefaultTimeout, "workflow.default_timeout", SourceFile, rc.Sources)
	if f.RetryFailedSteps != nil {
		w.RetryFailedSteps = boolPtr(*f.RetryFailedSteps)
		rc.Sources["workflow.retry_failed_steps"] = SourceFile
	}
	if f.MaxRetries != nil {
		w.MaxRetries = intPtr(*f.MaxRetries)
		rc.Sources["workflow.max_retries"] = SourceFile
	}
	mergeString(&w.RetryDelay, f.RetryDelay, "workflow.retry_delay", SourceFile, rc.Sources)
}

func resolveStepsFromFile(rc *ResolvedConfig, file *Config) {
	for name, step := range file.Steps {
		rc.Config.Steps[name] = copyStepConfig(step)
		rc.Sources["steps."+name] = SourceFile
	}
}

// --- Layer 3: Environment ---

// Environment variable mapping:
//
//	PARTFLOW_PROJECT_NAME       -> project.name
//	PARTFLOW_OUTPUT_DIR         -> project.output_dir
//	PARTFLOW_ENABLED_STEPS      -> workflow.enabled_steps (comma-separated)
//	PARTFLOW_MAX_PARALLEL       -> workflow.max_parallel_steps
//	PARTFLOW_CONTINUE_ON_ERROR  -> workflow.continue_on_error
//	PARTFLOW_DEFAULT_TIMEOUT    -> workflow.default_timeout
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	p := &rc.Config.Project
	w := &rc.Config.Workflow

	if val, ok := envFn(EnvProjectName); ok {
		p.Name = val
		rc.Sources["project.name"] = SourceEnv
	}
	if val, ok := envFn(EnvOutputDir); ok {
		p.OutputDir = val
		rc.Sources["project.output_dir"] = SourceEnv
	}
	if val, ok := envFn(EnvEnabledSteps); ok {
		if steps := splitList(val); len(steps) > 0 {
			w.EnabledSteps = steps
			rc.Sources["workflow.enabled_steps"] = SourceEnv
		}
	}
	if val, ok := envFn(EnvMaxParallel); ok {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			rc.Warnings = append(rc.Warnings, fmt.Sprintf("ignoring %s=%q: not an integer", EnvMaxParallel, val))
		} else {
			w.MaxParallelSteps = n
			rc.Sources["workflow.max_parallel_steps"] = SourceEnv
		}
	}
	if val, ok := envFn(EnvContinueOnError); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			rc.Warnings = append(rc.Warnings, fmt.Sprintf("ignoring %s=%q: not a boolean", EnvContinueOnError, val))
		} else {
			w.ContinueOnError = boolPtr(b)
			rc.Sources["workflow.continue_on_error"] = SourceEnv
		}
	}
	if val, ok := envFn(EnvDefaultTimeout); ok {
		w.DefaultTimeout = val
		rc.Sources["workflow.default_timeout"] = SourceEnv
	}
}

// --- Layer 4: CLI overrides ---

func resolveFromCLI(rc *ResolvedConfig, overrides *CLIOverrides) {
	p := &rc.Config.Project
	w := &rc.Config.Workflow

	if overrides.ProjectName != nil {
		p.Name = *overrides.ProjectName
		rc.Sources["project.name"] = SourceCLI
	}
	if overrides.OutputDir != nil {
		p.OutputDir = *overrides.OutputDir
		rc.Sources["project.output_dir"] = SourceCLI
	}
	if len(overrides.EnabledSteps) > 0 {
		w.EnabledSteps = copyStrings(overrides.EnabledSteps)
		rc.Sources["workflow.enabled_steps"] = SourceCLI
	}
	if overrides.MaxParallelSteps != nil {
		w.MaxParallelSteps = *overrides.MaxParallelSteps
		rc.Sources["workflow.max_parallel_steps"] = SourceCLI
	}
	if overrides.ContinueOnError != nil {
		w.ContinueOnError = boolPtr(*overrides.ContinueOnError)
		rc.Sources["workflow.continue_on_error"] = SourceCLI
	}
	if overrides.RetryFailedSteps != nil {
		w.RetryFailedSteps = boolPtr(*overrides.RetryFailedSteps)
		rc.Sources["workflow.retry_failed_steps"] = SourceCLI
	}
}

// --- Helpers ---

// setString unconditionally sets the target to the given value and records the source.
func setString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeString overwrites the target only if value is non-empty (non-zero string).
// For file-layer merging, an empty string in the file means "not set in file",
// so it does not override the default.
func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != "" {
		*target = value
		sources[path] = source
	}
}

// splitList splits a comma-separated value, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// copyStepConfig returns a deep copy of a StepConfig.
func copyStepConfig(src StepConfig) StepConfig {
	dst := src
	dst.Dependencies = copyStrings(src.Dependencies)
	dst.Args = copyStrings(src.Args)
	dst.Env = copyStrings(src.Env)
	return dst
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

package config

// Config is the top-level configuration structure mapping to partflow.toml.
type Config struct {
	Project  ProjectConfig         `toml:"project"`
	Workflow WorkflowConfig        `toml:"workflow"`
	Steps    map[string]StepConfig `toml:"steps"`
}

// ProjectConfig maps to the [project] section in partflow.toml.
type ProjectConfig struct {
	Name      string `toml:"name,omitempty"`
	OutputDir string `toml:"output_dir,omitempty"`
}

// WorkflowConfig maps to the [workflow] section in partflow.toml.
//
// Booleans and counts whose zero value is meaningful are pointers so that a
// file setting them to false or 0 can be told apart from a file that leaves
// them out. Resolve always returns them non-nil.
type WorkflowConfig struct {
	EnabledSteps     []string `toml:"enabled_steps"`
	MaxParallelSteps int      `toml:"max_parallel_steps"`
	ContinueOnError  *bool    `toml:"continue_on_error"`
	DefaultTimeout   string   `toml:"default_timeout"`
	RetryFailedSteps *bool    `toml:"retry_failed_steps"`
	MaxRetries       *int     `toml:"max_retries"`
	RetryDelay       string   `toml:"retry_delay"`
}

// StepConfig maps to a [steps.<name>] section in partflow.toml.
type StepConfig struct {
	Description   string   `toml:"description,omitempty"`
	Dependencies  []string `toml:"dependencies,omitempty"`
	Timeout       string   `toml:"timeout,omitempty"`
	RetryAttempts int      `toml:"retry_attempts,omitempty"`
	Command       string   `toml:"command,omitempty"`
	Args          []string `toml:"args,omitempty"`
	Dir           string   `toml:"dir,omitempty"`
	Env           []string `toml:"env,omitempty"`
}

// ContinueOnErrorValue returns the continue_on_error setting, false when unset.
func (w WorkflowConfig) ContinueOnErrorValue() bool {
	return w.ContinueOnError != nil && *w.ContinueOnError
}

// RetryFailedStepsValue returns the retry_failed_steps setting, false when
// unset.
func (w WorkflowConfig) RetryFailedStepsValue() bool {
	return w.RetryFailedSteps != nil && *w.RetryFailedSteps
}

// MaxRetriesValue returns the max_retries setting, 0 when unset.
func (w WorkflowConfig) MaxRetriesValue() int {
	if w.MaxRetries == nil {
		return 0
	}
	return *w.MaxRetries
}

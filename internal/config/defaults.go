package config

// Default workflow settings.
const (
	DefaultMaxParallelSteps = 3
	DefaultContinueOnError  = true
	DefaultTimeout          = "30m"
	DefaultRetryFailed      = false
	DefaultMaxRetries       = 2
	DefaultRetryDelay       = "5s"
	DefaultOutputDir        = "output"
)

// NewDefaults returns a Config populated with all default values. The steps
// are the catalog pipeline: three independent extracts followed by the SDC
// template and the validation reports, which combine them. None has a
// command; hosts either configure one or register an executor in code.
func NewDefaults() *Config {
	continueOnError := DefaultContinueOnError
	retryFailed := DefaultRetryFailed
	maxRetries := DefaultMaxRetries

	return &Config{
		Project: ProjectConfig{
			OutputDir: DefaultOutputDir,
		},
		Workflow: WorkflowConfig{
			EnabledSteps: []string{
				"applications",
				"marketing_descriptions",
				"popularity_codes",
				"sdc_template",
				"validation_reports",
			},
			MaxParallelSteps: DefaultMaxParallelSteps,
			ContinueOnError:  &continueOnError,
			DefaultTimeout:   DefaultTimeout,
			RetryFailedSteps: &retryFailed,
			MaxRetries:       &maxRetries,
			RetryDelay:       DefaultRetryDelay,
		},
		Steps: map[string]StepConfig{
			"applications": {
				Description: "Process vehicle application data",
			},
			"marketing_descriptions": {
				Description: "Load marketing descriptions",
			},
			"popularity_codes": {
				Description: "Compute popularity codes",
			},
			"sdc_template": {
				Description:  "Populate the SDC import template",
				Dependencies: []string{"marketing_descriptions", "popularity_codes"},
			},
			"validation_reports": {
				Description:  "Generate validation reports",
				Dependencies: []string{"applications", "marketing_descriptions"},
			},
		},
	}
}

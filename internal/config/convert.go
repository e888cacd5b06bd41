package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// ToWorkflow converts the configuration into the engine's workflow.Config.
// Durations are parsed with time.ParseDuration. A step without a timeout gets
// workflow.default_timeout; a step timeout of "0" means unbounded. Every
// malformed duration is reported, keyed by its dotted field path.
func (c *Config) ToWorkflow() (workflow.Config, error) {
	var errs []error

	defaultTimeout, err := parseDuration(c.Workflow.DefaultTimeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("workflow.default_timeout: %w", err))
	}
	retryDelay, err := parseDuration(c.Workflow.RetryDelay)
	if err != nil {
		errs = append(errs, fmt.Errorf("workflow.retry_delay: %w", err))
	}

	wc := workflow.Config{
		EnabledSteps:     copyStrings(c.Workflow.EnabledSteps),
		Steps:            make(map[string]workflow.StepDefinition, len(c.Steps)),
		MaxParallelSteps: c.Workflow.MaxParallelSteps,
		ContinueOnError:  c.Workflow.ContinueOnErrorValue(),
		RetryFailedSteps: c.Workflow.RetryFailedStepsValue(),
		MaxRetries:       c.Workflow.MaxRetriesValue(),
		RetryDelay:       retryDelay,
	}

	for _, name := range c.StepNames() {
		sc := c.Steps[name]
		timeout := defaultTimeout
		if sc.Timeout != "" {
			timeout, err = parseDuration(sc.Timeout)
			if err != nil {
				errs = append(errs, fmt.Errorf("steps.%s.timeout: %w", name, err))
			}
		}
		wc.Steps[name] = workflow.StepDefinition{
			Name:          name,
			Description:   sc.Description,
			Dependencies:  copyStrings(sc.Dependencies),
			Timeout:       timeout,
			RetryAttempts: sc.RetryAttempts,
		}
	}

	if len(errs) > 0 {
		return workflow.Config{}, errors.Join(errs...)
	}
	return wc, nil
}

// parseDuration parses a duration string. Empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

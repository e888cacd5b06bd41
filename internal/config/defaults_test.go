package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	cfg := NewDefaults()

	assert.Empty(t, cfg.Project.Name)
	assert.Equal(t, "output", cfg.Project.OutputDir)

	w := cfg.Workflow
	assert.Equal(t, 3, w.MaxParallelSteps)
	assert.True(t, w.ContinueOnErrorValue())
	assert.False(t, w.RetryFailedStepsValue())
	assert.Equal(t, 2, w.MaxRetriesValue())
	assert.Equal(t, "30m", w.DefaultTimeout)
	assert.Equal(t, "5s", w.RetryDelay)

	require.Len(t, cfg.Steps, 5)
	for _, name := range w.EnabledSteps {
		step, ok := cfg.Steps[name]
		require.True(t, ok, "enabled step %s must be defined", name)
		assert.NotEmpty(t, step.Description)
		assert.Empty(t, step.Command, "default steps carry no command")
	}
	assert.Equal(t, []string{"marketing_descriptions", "popularity_codes"}, cfg.Steps["sdc_template"].Dependencies)
	assert.Equal(t, []string{"applications", "marketing_descriptions"}, cfg.Steps["validation_reports"].Dependencies)
}

func TestNewDefaults_ReturnsFreshCopies(t *testing.T) {
	t.Parallel()

	a := NewDefaults()
	b := NewDefaults()
	a.Workflow.EnabledSteps[0] = "changed"
	*a.Workflow.ContinueOnError = false
	delete(a.Steps, "applications")

	assert.Equal(t, "applications", b.Workflow.EnabledSteps[0])
	assert.True(t, *b.Workflow.ContinueOnError)
	assert.Len(t, b.Steps, 5)
}

func TestWorkflowConfig_ValueAccessorsOnNil(t *testing.T) {
	t.Parallel()

	var w WorkflowConfig
	assert.False(t, w.ContinueOnErrorValue())
	assert.False(t, w.RetryFailedStepsValue())
	assert.Zero(t, w.MaxRetriesValue())
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/config"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/tui"
)

// stubWizard replaces the interactive wizard for the duration of the test.
func stubWizard(t *testing.T, fn func(*config.Config, tui.InitAnswers) (*config.Config, error)) {
	t.Helper()
	orig := initWizard
	initWizard = fn
	t.Cleanup(func() { initWizard = orig })
}

func TestInitCmd_WritesDefaults(t *testing.T) {
	dir := chdirTemp(t)

	_, stderr, code := executeCmd(t, "init", "--name", "catalog")
	require.Equal(t, ExitOK, code, "stderr:\n%s", stderr)
	assert.Contains(t, stderr, `project "catalog"`)
	assert.Contains(t, stderr, "Next steps:")

	cfg, _, err := config.LoadFromFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.Project.Name)
	assert.Equal(t, config.NewDefaults().Workflow.EnabledSteps, cfg.Workflow.EnabledSteps)
	assert.Len(t, cfg.Steps, 5)
}

func TestInitCmd_DefaultNameIsDirectory(t *testing.T) {
	dir := chdirTemp(t)

	_, _, code := executeCmd(t, "init")
	require.Equal(t, ExitOK, code)

	cfg, _, err := config.LoadFromFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), cfg.Project.Name)
}

func TestInitCmd_ExistingFileNeedsForce(t *testing.T) {
	dir := chdirTemp(t)
	path := writeProjectConfig(t, dir, "# mine\n")

	_, stderr, code := executeCmd(t, "init")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# mine\n", string(data), "existing file must be preserved")

	_, _, code = executeCmd(t, "init", "--force")
	assert.Equal(t, ExitOK, code)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[workflow]")
}

func TestInitCmd_RejectsPathInName(t *testing.T) {
	chdirTemp(t)

	_, stderr, code := executeCmd(t, "init", "--name", "../escape")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "invalid project name")
}

func TestInitCmd_WithDirFlag(t *testing.T) {
	chdirTemp(t)
	target := t.TempDir()

	_, _, code := executeCmd(t, "--dir", target, "init")
	require.Equal(t, ExitOK, code)
	assert.FileExists(t, filepath.Join(target, config.ConfigFileName))
}

func TestInitCmd_Interactive(t *testing.T) {
	dir := chdirTemp(t)

	var gotAnswers tui.InitAnswers
	stubWizard(t, func(base *config.Config, a tui.InitAnswers) (*config.Config, error) {
		gotAnswers = a
		a.EnabledSteps = []string{"applications"}
		a.MaxParallel = "1"
		return tui.BuildInitConfig(base, a)
	})

	_, stderr, code := executeCmd(t, "init", "--interactive", "--name", "wiz")
	require.Equal(t, ExitOK, code, "stderr:\n%s", stderr)
	assert.Equal(t, "wiz", gotAnswers.ProjectName)

	cfg, _, err := config.LoadFromFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, []string{"applications"}, cfg.Workflow.EnabledSteps)
	assert.Equal(t, 1, cfg.Workflow.MaxParallelSteps)
}

func TestInitCmd_InteractiveCancelled(t *testing.T) {
	dir := chdirTemp(t)
	stubWizard(t, func(*config.Config, tui.InitAnswers) (*config.Config, error) {
		return nil, tui.ErrWizardCancelled
	})

	_, stderr, code := executeCmd(t, "init", "-i")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stderr, "nothing written")
	assert.NoFileExists(t, filepath.Join(dir, config.ConfigFileName))
}

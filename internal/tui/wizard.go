package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/config"
)

// ErrWizardCancelled is returned when the user aborts the init wizard or
// declines the final confirmation.
var ErrWizardCancelled = errors.New("wizard cancelled by user")

const wizardWidth = 80

// maxWizardParallel bounds the parallelism offered by the wizard.
const maxWizardParallel = 16

// InitAnswers holds the values collected by the init wizard.
type InitAnswers struct {
	ProjectName     string
	OutputDir       string
	EnabledSteps    []string
	MaxParallel     string
	ContinueOnError bool
	RetryFailed     bool
	DefaultTimeout  string
}

// DefaultInitAnswers returns answers pre-filled from base, normally
// config.NewDefaults().
func DefaultInitAnswers(base *config.Config, projectName string) InitAnswers {
	return InitAnswers{
		ProjectName:     projectName,
		OutputDir:       base.Project.OutputDir,
		EnabledSteps:    append([]string(nil), base.Workflow.EnabledSteps...),
		MaxParallel:     strconv.Itoa(base.Workflow.MaxParallelSteps),
		ContinueOnError: base.Workflow.ContinueOnErrorValue(),
		RetryFailed:     base.Workflow.RetryFailedStepsValue(),
		DefaultTimeout:  base.Workflow.DefaultTimeout,
	}
}

// RunInitWizard asks for the project settings, starting from answers, and
// returns the configuration built from base and the user's choices.
//
// The wizard has three pages:
//  1. Project: name and output directory
//  2. Workflow: enabled steps, parallelism, timeout and failure policy
//  3. Confirmation: summary and write/cancel
func RunInitWizard(base *config.Config, answers InitAnswers) (*config.Config, error) {
	if base == nil || len(base.Steps) == 0 {
		return nil, errors.New("wizard: no steps available")
	}

	if err := runProjectPage(&answers); err != nil {
		return nil, mapWizardErr(err)
	}
	if err := runWorkflowPage(base, &answers); err != nil {
		return nil, mapWizardErr(err)
	}

	cfg, err := BuildInitConfig(base, answers)
	if err != nil {
		return nil, err
	}

	confirmed := false
	if err := runConfirmPage(InitSummary(cfg), &confirmed); err != nil {
		return nil, mapWizardErr(err)
	}
	if !confirmed {
		return nil, ErrWizardCancelled
	}
	return cfg, nil
}

func runProjectPage(a *InitAnswers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name:").
				Description("Shown in run output. May be left empty.").
				Value(&a.ProjectName),
			huh.NewInput().
				Title("Output directory:").
				Description("Where steps write their files, relative to partflow.toml.").
				Value(&a.OutputDir).
				Validate(validateNonEmpty("output directory")),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

func runWorkflowPage(base *config.Config, a *InitAnswers) error {
	names := base.StepNames()
	options := make([]huh.Option[string], len(names))
	for i, name := range names {
		label := name
		if desc := base.Steps[name].Description; desc != "" {
			label = fmt.Sprintf("%s: %s", name, desc)
		}
		options[i] = huh.NewOption(label, name)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Steps to run by default:").
				Description("Use space to toggle. Dependencies of a selected step always run.").
				Options(options...).
				Value(&a.EnabledSteps).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return errors.New("select at least one step")
					}
					return nil
				}),
			huh.NewInput().
				Title(fmt.Sprintf("Parallel steps (1-%d):", maxWizardParallel)).
				Description("Maximum number of steps of one level running at once.").
				Value(&a.MaxParallel).
				Validate(validateParallel),
			huh.NewInput().
				Title("Default step timeout:").
				Description(`Go duration such as "30m" or "1h". "0" means no limit.`).
				Value(&a.DefaultTimeout).
				Validate(validateDuration),
			huh.NewConfirm().
				Title("Continue after a failed level?").
				Value(&a.ContinueOnError),
			huh.NewConfirm().
				Title("Retry failed steps?").
				Value(&a.RetryFailed),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

func runConfirmPage(summary string, confirmed *bool) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write partflow.toml?").
				Description(summary).
				Affirmative("Write").
				Negative("Cancel").
				Value(confirmed),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

// BuildInitConfig applies answers to a copy of base. Steps keep their
// definitions from base; only the project and workflow sections change.
func BuildInitConfig(base *config.Config, a InitAnswers) (*config.Config, error) {
	if err := validateParallel(a.MaxParallel); err != nil {
		return nil, fmt.Errorf("parallel steps: %w", err)
	}
	if err := validateDuration(a.DefaultTimeout); err != nil {
		return nil, fmt.Errorf("default timeout: %w", err)
	}
	if len(a.EnabledSteps) == 0 {
		return nil, errors.New("at least one step must be enabled")
	}
	for _, name := range a.EnabledSteps {
		if _, ok := base.Steps[name]; !ok {
			return nil, fmt.Errorf("unknown step %q", name)
		}
	}

	parallel, _ := strconv.Atoi(strings.TrimSpace(a.MaxParallel))
	continueOnError := a.ContinueOnError
	retryFailed := a.RetryFailed

	cfg := &config.Config{
		Project: config.ProjectConfig{
			Name:      strings.TrimSpace(a.ProjectName),
			OutputDir: strings.TrimSpace(a.OutputDir),
		},
		Workflow: base.Workflow,
		Steps:    make(map[string]config.StepConfig, len(base.Steps)),
	}
	cfg.Workflow.EnabledSteps = orderLike(base.StepNames(), a.EnabledSteps)
	cfg.Workflow.MaxParallelSteps = parallel
	cfg.Workflow.DefaultTimeout = strings.TrimSpace(a.DefaultTimeout)
	cfg.Workflow.ContinueOnError = &continueOnError
	cfg.Workflow.RetryFailedSteps = &retryFailed
	for name, sc := range base.Steps {
		sc.Dependencies = append([]string(nil), sc.Dependencies...)
		cfg.Steps[name] = sc
	}
	return cfg, nil
}

// orderLike returns the members of selected in the order they appear in all.
func orderLike(all, selected []string) []string {
	set := make(map[string]bool, len(selected))
	for _, s := range selected {
		set[s] = true
	}
	out := make([]string, 0, len(selected))
	for _, s := range all {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// InitSummary describes cfg for the confirmation page.
func InitSummary(cfg *config.Config) string {
	var sb strings.Builder
	name := cfg.Project.Name
	if name == "" {
		name = "(unnamed)"
	}
	sb.WriteString(fmt.Sprintf("Project:        %s\n", name))
	sb.WriteString(fmt.Sprintf("Output dir:     %s\n", cfg.Project.OutputDir))
	sb.WriteString(fmt.Sprintf("Steps:          %s\n", strings.Join(cfg.Workflow.EnabledSteps, ", ")))
	sb.WriteString(fmt.Sprintf("Parallel:       %d\n", cfg.Workflow.MaxParallelSteps))
	sb.WriteString(fmt.Sprintf("Timeout:        %s\n", cfg.Workflow.DefaultTimeout))
	sb.WriteString(fmt.Sprintf("On error:       %s\n", onErrorLabel(cfg.Workflow.ContinueOnErrorValue())))
	if cfg.Workflow.RetryFailedStepsValue() {
		sb.WriteString(fmt.Sprintf("Retries:        up to %d\n", cfg.Workflow.MaxRetriesValue()))
	}
	return sb.String()
}

func onErrorLabel(continueOnError bool) string {
	if continueOnError {
		return "continue"
	}
	return "stop"
}

// mapWizardErr converts huh-specific errors into ErrWizardCancelled so callers
// do not need to import the huh package.
func mapWizardErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrWizardCancelled
	}
	return fmt.Errorf("wizard: %w", err)
}

func validateNonEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", what)
		}
		return nil
	}
}

func validateParallel(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a number")
	}
	if n < 1 || n > maxWizardParallel {
		return fmt.Errorf("must be between 1 and %d", maxWizardParallel)
	}
	return nil
}

func validateDuration(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("must not be empty")
	}
	if s == "0" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("not a duration: %q", s)
	}
	return nil
}

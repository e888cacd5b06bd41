package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/config"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/logging"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/tui"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// eventBufferSize bounds the channel between the engine and the progress
// view. The publisher drops events that do not fit.
const eventBufferSize = 256

// runFlags holds parsed flag values for the run command.
type runFlags struct {
	Steps           []string
	Parallel        int
	ContinueOnError bool
	Retry           bool
	JSON            bool
	TUI             bool
}

// newRunCmd creates the "partflow run" command.
func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workflow",
		Long: `Run the enabled steps, or the steps selected with --steps, level by level.

Steps of one level run in parallel up to max_parallel_steps. When a step
fails, later levels still run if continue_on_error is set; otherwise the run
stops after the failing level. Press Ctrl+C to stop dispatching new levels;
steps already running see their context cancelled.

Exit codes:
  0  every planned step succeeded
  1  configuration or planning error
  2  at least one step failed or was not attempted
  3  the run was interrupted

Examples:
  partflow run
  partflow run --steps applications,popularity_codes
  partflow run --steps 'market*' --parallel 1
  partflow run --continue-on-error=false --json
  partflow run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, flags)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.Steps, "steps", "s", nil, "Steps to run (names or glob patterns, comma-separated; default: enabled_steps)")
	cmd.Flags().IntVarP(&flags.Parallel, "parallel", "p", 0, "Maximum steps of one level running at once (default: max_parallel_steps)")
	cmd.Flags().BoolVar(&flags.ContinueOnError, "continue-on-error", false, "Keep running later levels after a failure (default: continue_on_error)")
	cmd.Flags().BoolVar(&flags.Retry, "retry", false, "Retry failed steps up to their retry budget (default: retry_failed_steps)")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the run result as JSON")
	cmd.Flags().BoolVar(&flags.TUI, "tui", false, "Show a live progress view while the workflow runs")
	cmd.MarkFlagsMutuallyExclusive("json", "tui")

	_ = cmd.RegisterFlagCompletionFunc("steps", completeStepNames)

	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}

// runOverrides turns the run flags that were set explicitly into config
// overrides.
func runOverrides(cmd *cobra.Command, flags runFlags) *config.CLIOverrides {
	o := &config.CLIOverrides{}
	if cmd.Flags().Changed("parallel") {
		n := flags.Parallel
		o.MaxParallelSteps = &n
	}
	if cmd.Flags().Changed("continue-on-error") {
		b := flags.ContinueOnError
		o.ContinueOnError = &b
	}
	if cmd.Flags().Changed("retry") {
		b := flags.Retry
		o.RetryFailedSteps = &b
	}
	return o
}

func runWorkflow(cmd *cobra.Command, flags runFlags) error {
	logger := logging.New("run")

	resolved, _, err := loadAndResolveConfig(runOverrides(cmd, flags))
	if err != nil {
		return err
	}
	selection, err := resolveSelection(flags.Steps, resolved.Config)
	if err != nil {
		return err
	}

	if flagDryRun {
		setup, err := buildEngine(resolved, nil)
		if err != nil {
			return err
		}
		plan, err := setup.engine.Plan(selection)
		if err != nil {
			return fmt.Errorf("planning workflow: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, workflow.NewPlanFormatter(out, !flagNoColor).FormatPlan(plan, setup.workflow, setup.engine.Registry()))
		return nil
	}

	var (
		publishers workflow.MultiPublisher
		events     chan workflow.WorkflowEvent
	)
	if flags.TUI {
		events = make(chan workflow.WorkflowEvent, eventBufferSize)
		publishers = append(publishers, workflow.NewChannelPublisher(events))
	} else {
		publishers = append(publishers, workflow.NewLogPublisher(logging.New("workflow")))
	}

	setup, err := buildEngine(resolved, publishers)
	if err != nil {
		return err
	}
	logger.Debug("executors registered", "steps", setup.registered)

	// Plan up front so configuration errors surface with exit code 1 and the
	// progress view knows the levels.
	plan, err := setup.engine.Plan(selection)
	if err != nil {
		return fmt.Errorf("planning workflow: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var result *workflow.ProcessingResult
	if flags.TUI {
		result, err = tui.RunProgress(ctx, tui.ProgressConfig{
			Title:  resolved.Config.Project.Name,
			Plan:   plan,
			Events: events,
			Cancel: cancel,
		}, func() *workflow.ProcessingResult {
			return setup.engine.Execute(ctx, selection)
		})
		if err != nil {
			logger.Warn("progress view failed", "error", err)
		}
	} else {
		result = setup.engine.Execute(ctx, selection)
	}

	if err := writeRunResult(cmd.OutOrStdout(), result, flags.JSON); err != nil {
		return err
	}
	return runExitError(ctx, result)
}

// writeRunResult prints result as JSON or as the formatted summary.
func writeRunResult(w io.Writer, result *workflow.ProcessingResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		return nil
	}
	fmt.Fprint(w, workflow.NewPlanFormatter(w, !flagNoColor).FormatResult(result))
	return nil
}

// runExitError maps a finished run onto the command's exit code.
func runExitError(ctx context.Context, result *workflow.ProcessingResult) error {
	if result.Success {
		return nil
	}
	if ctx.Err() != nil {
		return withExitCode(ExitCanceled, errors.New("workflow interrupted"), false)
	}
	return withExitCode(ExitFailed,
		fmt.Errorf("workflow failed: %d step(s) failed", result.ItemsFailed), false)
}

// completeStepNames offers the configured step names for --steps.
func completeStepNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	resolved, _, err := loadAndResolveConfig(nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return resolved.Config.StepNames(), cobra.ShellCompDirectiveNoFileComp
}

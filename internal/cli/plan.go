package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/workflow"
)

// planOutput is the JSON shape of "partflow plan --json".
type planOutput struct {
	Levels      [][]string `json:"levels"`
	Steps       int        `json:"steps"`
	Fingerprint string     `json:"fingerprint"`
	// MissingExecutors lists planned steps that would fail for lack of an
	// executor.
	MissingExecutors []string `json:"missing_executors"`
}

// newPlanCmd creates the "partflow plan" command.
func newPlanCmd() *cobra.Command {
	var (
		steps  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the execution plan without running anything",
		Long: `Group the enabled steps, or the steps selected with --steps, into levels
and print them in execution order. Steps of one level have no dependencies on
each other and run in parallel.

Examples:
  partflow plan
  partflow plan --steps 'applications,*_codes'
  partflow plan --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, _, err := loadAndResolveConfig(nil)
			if err != nil {
				return err
			}
			selection, err := resolveSelection(steps, resolved.Config)
			if err != nil {
				return err
			}
			setup, err := buildEngine(resolved, nil)
			if err != nil {
				return err
			}
			plan, err := setup.engine.Plan(selection)
			if err != nil {
				return fmt.Errorf("planning workflow: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(newPlanOutput(plan, setup.engine.Registry())); err != nil {
					return fmt.Errorf("encoding plan: %w", err)
				}
				return nil
			}
			fmt.Fprint(out, workflow.NewPlanFormatter(out, !flagNoColor).FormatPlan(plan, setup.workflow, setup.engine.Registry()))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&steps, "steps", "s", nil, "Steps to plan (names or glob patterns, comma-separated; default: enabled_steps)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the plan as JSON")
	_ = cmd.RegisterFlagCompletionFunc("steps", completeStepNames)
	return cmd
}

func init() {
	rootCmd.AddCommand(newPlanCmd())
}

func newPlanOutput(plan workflow.Plan, registry *workflow.Registry) planOutput {
	out := planOutput{
		Levels:           make([][]string, len(plan)),
		Steps:            plan.Len(),
		Fingerprint:      plan.Fingerprint(),
		MissingExecutors: []string{},
	}
	for i, level := range plan {
		out.Levels[i] = append([]string{}, level...)
		for _, name := range level {
			if !registry.Has(name) {
				out.MissingExecutors = append(out.MissingExecutors, name)
			}
		}
	}
	return out
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// stepInfo is one row of "partflow steps".
type stepInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
	Enabled      bool     `json:"enabled"`
	Timeout      string   `json:"timeout,omitempty"`
	Command      string   `json:"command,omitempty"`
}

// newStepsCmd creates the "partflow steps" command.
func newStepsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List configured steps",
		Long: `List every configured step with its dependencies, whether it is part of
enabled_steps, and the command it runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, _, err := loadAndResolveConfig(nil)
			if err != nil {
				return err
			}
			cfg := resolved.Config

			enabled := make(map[string]bool, len(cfg.Workflow.EnabledSteps))
			for _, name := range cfg.Workflow.EnabledSteps {
				enabled[name] = true
			}

			infos := make([]stepInfo, 0, len(cfg.Steps))
			for _, name := range cfg.StepNames() {
				sc := cfg.Steps[name]
				infos = append(infos, stepInfo{
					Name:         name,
					Description:  sc.Description,
					Dependencies: append([]string{}, sc.Dependencies...),
					Enabled:      enabled[name],
					Timeout:      sc.Timeout,
					Command:      sc.Command,
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(infos); err != nil {
					return fmt.Errorf("encoding steps: %w", err)
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tENABLED\tDEPENDS ON\tCOMMAND\tDESCRIPTION")
			for _, s := range infos {
				deps := "-"
				if len(s.Dependencies) > 0 {
					deps = strings.Join(s.Dependencies, ",")
				}
				command := s.Command
				if command == "" {
					command = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, yesNo(s.Enabled), deps, command, s.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the step list as JSON")
	return cmd
}

func init() {
	rootCmd.AddCommand(newStepsCmd())
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/config"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/tui"
)

// initFlagName, initFlagForce and initFlagInteractive are the flag values for
// the init subcommand.
var (
	initFlagName        string
	initFlagForce       bool
	initFlagInteractive bool
)

// initWizard runs the interactive questions. Tests replace it.
var initWizard = tui.RunInitWizard

// initCmd implements "partflow init".
// It writes a partflow.toml with the default catalog steps without requiring
// an existing configuration.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a partflow.toml with the default steps",
	Long: `Write a partflow.toml in the current directory (or --dir) containing the
default settings and the catalog steps with their dependencies. Each step
still needs a command before it can run.

An existing partflow.toml is preserved unless --force is supplied.

Examples:
  partflow init
  partflow init --name catalog
  partflow init --interactive
  partflow init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initFlagName, "name", "n", "", "Project name (defaults to current directory name)")
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite an existing partflow.toml")
	initCmd.Flags().BoolVarP(&initFlagInteractive, "interactive", "i", false, "Answer questions to customise the configuration")
	rootCmd.AddCommand(initCmd)
}

// runInit is the RunE handler for the init command.
func runInit(cmd *cobra.Command, args []string) error {
	destDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projectName := initFlagName
	if projectName == "" {
		projectName = filepath.Base(destDir)
	}
	if strings.ContainsAny(projectName, "/\\") {
		return fmt.Errorf("invalid project name %q: must not contain path separators", projectName)
	}

	target := filepath.Join(destDir, config.ConfigFileName)
	if _, statErr := os.Stat(target); statErr == nil && !initFlagForce {
		return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.ConfigFileName, destDir)
	}

	base := config.NewDefaults()
	cfg := base
	cfg.Project.Name = projectName
	if initFlagInteractive {
		cfg, err = initWizard(base, tui.DefaultInitAnswers(base, projectName))
		if err != nil {
			if errors.Is(err, tui.ErrWizardCancelled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Init cancelled; nothing written.")
				return nil
			}
			return err
		}
	}

	if err := config.WriteFile(target, cfg, initFlagForce); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Wrote %s for project %q\n\n", target, cfg.Project.Name)
	fmt.Fprintln(stderr, "Next steps:")
	fmt.Fprintf(stderr, "  1. Set a command for each step in %s\n", config.ConfigFileName)
	fmt.Fprintln(stderr, "  2. Check it: partflow config validate")
	fmt.Fprintln(stderr, "  3. Preview:  partflow plan")
	fmt.Fprintln(stderr, "  4. Run:      partflow run")
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/logging"
)

// Exit codes returned by Execute.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitFailed   = 2
	ExitCanceled = 3
)

// EnvNoColor disables colored output like NO_COLOR does.
const EnvNoColor = "PARTFLOW_NO_COLOR"

// Global flag values accessible to all subcommands.
var (
	flagVerbose bool
	flagQuiet   bool
	flagConfig  string
	flagDir     string
	flagDryRun  bool
	flagNoColor bool
)

// exitCodeError carries a specific process exit code out of a RunE. The
// message has already been reported when silent is set.
type exitCodeError struct {
	code   int
	err    error
	silent bool
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func (e *exitCodeError) Unwrap() error { return e.err }

// withExitCode wraps err so that Execute returns code.
func withExitCode(code int, err error, silent bool) error {
	return &exitCodeError{code: code, err: err, silent: silent}
}

// rootCmd is the base command for PartFlow.
var rootCmd = &cobra.Command{
	Use:   "partflow",
	Short: "Dependency-aware workflow runner",
	Long: `PartFlow runs a set of named processing steps in dependency order.

Steps are declared in partflow.toml together with the steps they depend on.
PartFlow groups them into levels: every step of a level only depends on
steps of earlier levels, so the steps of one level run in parallel, up to
max_parallel_steps at once. Each step may carry a timeout and a retry
budget, and continue_on_error decides whether a failed level stops the run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupGlobals(cmd)
	},
}

func init() {
	registerPersistentFlags(rootCmd,
		&flagVerbose, &flagQuiet, &flagConfig, &flagDir, &flagDryRun, &flagNoColor)
}

func registerPersistentFlags(cmd *cobra.Command, verbose, quiet *bool, cfg, dir *string, dryRun, noColor *bool) {
	pf := cmd.PersistentFlags()
	pf.BoolVarP(verbose, "verbose", "v", false, "Enable verbose (debug) output (env: "+logging.EnvVerbose+")")
	pf.BoolVarP(quiet, "quiet", "q", false, "Suppress all output except errors (env: "+logging.EnvQuiet+")")
	pf.StringVar(cfg, "config", "", "Path to partflow.toml config file")
	pf.StringVar(dir, "dir", "", "Override working directory")
	pf.BoolVar(dryRun, "dry-run", false, "Show the plan without executing any step")
	pf.BoolVar(noColor, "no-color", false, "Disable colored output (env: "+EnvNoColor+", NO_COLOR)")
}

// setupGlobals applies environment fallbacks for the global flags, sets up
// logging and color, and changes into --dir.
func setupGlobals(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv(EnvNoColor) != "") {
		flagNoColor = true
	}

	opts := logging.ApplyEnv(logging.Options{Verbose: flagVerbose, Quiet: flagQuiet}, os.LookupEnv)
	flagVerbose = opts.Verbose
	flagQuiet = opts.Quiet
	logging.Setup(opts)

	if flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	if flagDir != "" {
		if err := os.Chdir(flagDir); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagDir, err)
		}
	}
	return nil
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		if !ec.silent {
			fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		}
		return ec.code
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), err)
	return ExitError
}

// NewRootCmd returns a new instance of the root command for use in external
// tools such as the shell completion generator and man page generator. It
// carries the same persistent flags as the global rootCmd, bound to local
// variables, and shares its subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               rootCmd.Use,
		Short:             rootCmd.Short,
		Long:              rootCmd.Long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootCmd.PersistentPreRunE,
	}

	var (
		verbose, quiet, dryRun, noColor bool
		cfg, dir                        string
	)
	registerPersistentFlags(cmd, &verbose, &quiet, &cfg, &dir, &dryRun, &noColor)

	for _, child := range rootCmd.Commands() {
		cmd.AddCommand(child)
	}
	return cmd
}

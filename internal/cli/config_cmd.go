package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/config"
	"github.com/AbdelazizMoustafa10m/PartFlow/internal/logging"
)

var configValidateJSON bool

// configCmd is the parent "config" namespace command. It has no action of its
// own; it groups the show and validate subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Inspect and validate PartFlow configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// configShowCmd implements "partflow config show".
var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"debug"},
	Short:   "Show resolved configuration with source annotations",
	Long: `Display the fully-resolved configuration showing each value and
the source where it came from (cli flag, environment variable, config file, or default).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _, err := loadAndResolveConfig(nil)
		if err != nil {
			return err
		}
		printResolvedConfig(cmd, resolved)
		return nil
	},
}

// configValidateCmd implements "partflow config validate".
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and report issues",
	Long: `Check the configuration for errors and warnings: malformed durations,
unknown keys, steps without a command, unknown dependencies and dependency
cycles.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, meta, err := loadAndResolveConfig(nil)
		if err != nil {
			return err
		}
		result := config.Validate(resolved.Config, meta, configBaseDir(resolved))
		if configValidateJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encoding validation result: %w", err)
			}
		} else {
			printValidationResult(cmd, result)
		}
		if result.HasErrors() {
			return withExitCode(ExitError, fmt.Errorf("configuration has %d error(s)", len(result.Errors())), configValidateJSON)
		}
		return nil
	},
}

func init() {
	configValidateCmd.Flags().BoolVar(&configValidateJSON, "json", false, "Output the validation result as JSON")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// loadAndResolveConfig loads and resolves the configuration from all sources
// (file, env, CLI flags). It returns the resolved config, the TOML metadata
// (nil when no file was found), and any loading error.
//
// When flagConfig is set, that path must exist. Otherwise partflow.toml is
// searched for upward from the current directory and the defaults are used
// when none is found.
func loadAndResolveConfig(overrides *config.CLIOverrides) (*config.ResolvedConfig, *toml.MetaData, error) {
	logger := logging.New("config")

	fileCfg, meta, path, err := config.Load(".", flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if path == "" {
		logger.Debug("no config file found, using defaults")
	} else {
		logger.Debug("loaded config", "path", path)
	}

	resolved := config.Resolve(config.NewDefaults(), fileCfg, os.LookupEnv, overrides)
	resolved.Path = path
	for _, w := range resolved.Warnings {
		logger.Warn(w)
	}
	return resolved, meta, nil
}

// configBaseDir returns the directory relative paths in the configuration
// are resolved against: the config file's directory, or the working
// directory when no file was loaded.
func configBaseDir(rc *config.ResolvedConfig) string {
	if rc.Path == "" {
		return "."
	}
	return filepath.Dir(rc.Path)
}

// ---- Lipgloss styles --------------------------------------------------------

// sourceStyle returns a lipgloss style for a given ConfigSource.
// When --no-color is active, lipgloss automatically strips ANSI because
// the root PersistentPreRunE sets the color profile to Ascii.
func sourceStyle(src config.ConfigSource) lipgloss.Style {
	switch src {
	case config.SourceFile:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // bright blue
	case config.SourceEnv:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // bright yellow
	case config.SourceCLI:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // bright red
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // bright green
	}
}

var (
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleSection  = lipgloss.NewStyle().Bold(true)
	styleErrorLbl = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	styleWarnLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // yellow
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // green
)

// ---- printResolvedConfig ----------------------------------------------------

const fieldWidth = 20 // column width for field names

// printResolvedConfig writes the formatted resolved configuration to cmd's
// output writer (stdout by default).
func printResolvedConfig(cmd *cobra.Command, rc *config.ResolvedConfig) {
	out := cmd.OutOrStdout()

	title := "Resolved Configuration"
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintln(out)

	if rc.Path != "" {
		fmt.Fprintf(out, "Config file: %s\n", rc.Path)
	} else {
		fmt.Fprintln(out, "Config file: none found")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[project]"))
	p := rc.Config.Project
	printField(out, "name", fmtStr(p.Name), rc.Sources["project.name"])
	printField(out, "output_dir", fmtStr(p.OutputDir), rc.Sources["project.output_dir"])
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[workflow]"))
	w := rc.Config.Workflow
	printField(out, "enabled_steps", fmtSlice(w.EnabledSteps), rc.Sources["workflow.enabled_steps"])
	printField(out, "max_parallel_steps", strconv.Itoa(w.MaxParallelSteps), rc.Sources["workflow.max_parallel_steps"])
	printField(out, "continue_on_error", strconv.FormatBool(w.ContinueOnErrorValue()), rc.Sources["workflow.continue_on_error"])
	printField(out, "default_timeout", fmtStr(w.DefaultTimeout), rc.Sources["workflow.default_timeout"])
	printField(out, "retry_failed_steps", strconv.FormatBool(w.RetryFailedStepsValue()), rc.Sources["workflow.retry_failed_steps"])
	printField(out, "max_retries", strconv.Itoa(w.MaxRetriesValue()), rc.Sources["workflow.max_retries"])
	printField(out, "retry_delay", fmtStr(w.RetryDelay), rc.Sources["workflow.retry_delay"])
	fmt.Fprintln(out)

	for _, name := range rc.Config.StepNames() {
		sc := rc.Config.Steps[name]
		src := rc.Sources["steps."+name]
		fmt.Fprintln(out, styleSection.Render(fmt.Sprintf("[steps.%s]", name)))
		printField(out, "description", fmtStr(sc.Description), src)
		printField(out, "dependencies", fmtSlice(sc.Dependencies), src)
		printField(out, "timeout", fmtStr(sc.Timeout), src)
		printField(out, "retry_attempts", strconv.Itoa(sc.RetryAttempts), src)
		printField(out, "command", fmtStr(sc.Command), src)
		if len(sc.Args) > 0 {
			printField(out, "args", fmtSlice(sc.Args), src)
		}
		if sc.Dir != "" {
			printField(out, "dir", fmtStr(sc.Dir), src)
		}
		if len(sc.Env) > 0 {
			printField(out, "env", fmtSlice(sc.Env), src)
		}
		fmt.Fprintln(out)
	}
}

// printField writes a single key = value (source: ...) line.
func printField(out io.Writer, name, value string, src config.ConfigSource) {
	if src == "" {
		src = config.SourceDefault
	}
	padded := fmt.Sprintf("  %-*s", fieldWidth, name)
	srcLabel := sourceStyle(src).Render(fmt.Sprintf("(source: %s)", src))
	fmt.Fprintf(out, "%s = %-40s %s\n", padded, value, srcLabel)
}

// fmtStr formats a string value for display (quoted).
func fmtStr(s string) string {
	return strconv.Quote(s)
}

// fmtSlice formats a string slice for display.
func fmtSlice(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ---- printValidationResult --------------------------------------------------

// printValidationResult writes the formatted validation report to cmd's
// output writer.
func printValidationResult(cmd *cobra.Command, result *config.ValidationResult) {
	out := cmd.OutOrStdout()

	title := "Configuration Validation"
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintln(out)

	errs := result.Errors()
	warns := result.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintln(out, styleSuccess.Render("No issues found."))
		return
	}

	if len(errs) > 0 {
		fmt.Fprintln(out, styleErrorLbl.Render("Errors:"))
		for _, issue := range errs {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	if len(warns) > 0 {
		fmt.Fprintln(out, styleWarnLbl.Render("Warnings:"))
		for _, issue := range warns {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d error(s), %d warning(s)\n", len(errs), len(warns))
}

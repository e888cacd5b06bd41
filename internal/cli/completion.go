package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts for PartFlow.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for PartFlow.

To install completions:

  Bash (Linux):
    partflow completion bash | sudo tee /etc/bash_completion.d/partflow > /dev/null

  Bash (macOS with Homebrew):
    partflow completion bash > $(brew --prefix)/etc/bash_completion.d/partflow

  Zsh:
    partflow completion zsh > "${fpath[1]}/_partflow"

  Fish:
    partflow completion fish > ~/.config/fish/completions/partflow.fish

  PowerShell:
    partflow completion powershell > partflow.ps1
    # Then add ". partflow.ps1" to your PowerShell profile`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

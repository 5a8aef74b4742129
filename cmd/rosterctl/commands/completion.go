package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for rosterctl.

Bash:
  # Linux:
  $ rosterctl completion bash > /etc/bash_completion.d/rosterctl
  # macOS:
  $ rosterctl completion bash > $(brew --prefix)/etc/bash_completion.d/rosterctl

Zsh:
  # Enable completion once if it is not already on:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # Then install the script (new shells pick it up):
  $ rosterctl completion zsh > "${fpath[1]}/_rosterctl"

Fish:
  $ rosterctl completion fish > ~/.config/fish/completions/rosterctl.fish

PowerShell:
  PS> rosterctl completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletion(os.Stdout)
		case "zsh":
			return root.GenZshCompletion(os.Stdout)
		case "fish":
			return root.GenFishCompletion(os.Stdout, true)
		default:
			return root.GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

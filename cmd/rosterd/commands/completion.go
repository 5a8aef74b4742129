package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for rosterd.

Bash:
  # Linux:
  $ rosterd completion bash > /etc/bash_completion.d/rosterd
  # macOS:
  $ rosterd completion bash > $(brew --prefix)/etc/bash_completion.d/rosterd

Zsh:
  # Enable completion once if it is not already on:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # Then install the script (new shells pick it up):
  $ rosterd completion zsh > "${fpath[1]}/_rosterd"

Fish:
  $ rosterd completion fish > ~/.config/fish/completions/rosterd.fish

PowerShell:
  PS> rosterd completion powershell | Out-String | Invoke-Expression
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

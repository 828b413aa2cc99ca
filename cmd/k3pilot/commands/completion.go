package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for k3pilot.

To load completions:

Bash:
  $ source <(k3pilot completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ k3pilot completion bash > /etc/bash_completion.d/k3pilot
  # macOS:
  $ k3pilot completion bash > $(brew --prefix)/etc/bash_completion.d/k3pilot

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ k3pilot completion zsh > "${fpath[1]}/_k3pilot"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ k3pilot completion fish | source
  # To load completions for each session, execute once:
  $ k3pilot completion fish > ~/.config/fish/completions/k3pilot.fish

PowerShell:
  PS> k3pilot completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> k3pilot completion powershell > k3pilot.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}

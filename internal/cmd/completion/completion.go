// Package completion provides shell completion generation commands.
package completion

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
)

type shell struct {
	name    string
	install string
	gen     func(root *cobra.Command, w io.Writer) error
}

var shells = []shell{
	{
		name: "bash",
		install: `  # Load in current session
  source <(mori completion bash)

  # Install permanently (Linux)
  mori completion bash | sudo tee /etc/bash_completion.d/mori > /dev/null

  # Install permanently (macOS with Homebrew)
  mori completion bash > $(brew --prefix)/etc/bash_completion.d/mori`,
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	},
	{
		name: "zsh",
		install: `  # Enable completion once (~/.zshrc)
  autoload -Uz compinit && compinit

  # Install into your fpath
  mori completion zsh > "${fpath[1]}/_mori"`,
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	},
	{
		name: "fish",
		install: `  # Load in current session
  mori completion fish | source

  # Install permanently
  mori completion fish > ~/.config/fish/completions/mori.fish`,
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	},
	{
		name: "powershell",
		install: `  # Load in current session
  mori completion powershell | Out-String | Invoke-Expression

  # Install permanently: add the line above to $PROFILE`,
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
	},
}

// NewCmdCompletion creates the completion command.
func NewCmdCompletion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mori.

These scripts enable tab-completion for commands and flags.
See each sub-command's help for installation instructions.`,
	}

	for _, sh := range shells {
		cmd.AddCommand(newCmdShell(sh))
	}

	return cmd
}

func newCmdShell(sh shell) *cobra.Command {
	return &cobra.Command{
		Use:                   sh.name,
		Short:                 "Generate " + sh.name + " completion script",
		Long:                  "Generate " + sh.name + " completion script for mori.",
		Example:               sh.install,
		Args:                  cmdutil.UsageArgs(cobra.NoArgs),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sh.gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}

package main

import (
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <bash|zsh|fish>",
		Short: "Generate shell completion script",
		Long: `Generate a shell completion script for lurker.

To load completions:

  bash:
    source <(lurker completion bash)

  zsh:
    echo 'source <(lurker completion zsh)' >> ~/.zshrc

  fish:
    lurker completion fish > ~/.config/fish/completions/lurker.fish
`,
		Args:        cobra.ExactArgs(1),
		ValidArgs:   []string{"bash", "zsh", "fish"},
		Annotations: map[string]string{skipConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			default:
				return cmd.Help()
			}
		},
	}
	return cmd
}

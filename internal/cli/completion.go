package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCompletionCommand() *cobra.Command {
	var install bool

	cmd := &cobra.Command{
		Use:       "completion <bash|zsh|fish>",
		Short:     "Generate shell completion scripts",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			if !install {
				return GenerateCompletion(root, args[0], cmd.OutOrStdout())
			}
			path, err := InstallCompletion(root, args[0])
			if err != nil {
				return err
			}
			Success(cmd.OutOrStdout(), "completion script installed to "+path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&install, "install", false, "write the script to the shell's completion directory")
	return cmd
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	default:
		return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", shell)
	}
}

// InstallCompletion writes the completion script under the user's home
// directory and returns its path.
func InstallCompletion(root *cobra.Command, shell string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	name := root.Name()
	var installPath string
	switch shell {
	case "bash":
		installPath = filepath.Join(homeDir, ".bash_completion.d", name)
	case "zsh":
		installPath = filepath.Join(homeDir, ".zsh", "completion", "_"+name)
	case "fish":
		installPath = filepath.Join(homeDir, ".config", "fish", "completions", name+".fish")
	default:
		return "", fmt.Errorf("unsupported shell: %s", shell)
	}

	var buf bytes.Buffer
	if err := GenerateCompletion(root, shell, &buf); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(installPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create completion directory: %w", err)
	}
	if err := os.WriteFile(installPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write completion script: %w", err)
	}
	return installPath, nil
}

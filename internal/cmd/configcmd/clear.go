package configcmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/config"
)

// NewCmdClear creates the config clear command.
func NewCmdClear() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the config file",
		Long:  `Delete mori.yml. Environment variables will still be used if set.`,
		Example: `  # Clear config
  mori config clear`,
		Args: cmdutil.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := cmdutil.GlobalsFrom(cmd)
			return runClear(cmd.OutOrStdout(), g.NoColor, g.ConfigPath)
		},
	}

	return cmd
}

func runClear(w io.Writer, noColor bool, configPath string) error {
	if noColor {
		color.NoColor = true
	}

	err := os.Remove(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove config file: %w", err)
	}

	green := color.New(color.FgGreen)
	dim := color.New(color.Faint)

	if os.IsNotExist(err) {
		_, _ = green.Fprintf(w, "✓ No config file to remove\n")
	} else {
		_, _ = green.Fprintf(w, "✓ Configuration cleared from %s\n", configPath)
	}

	var activeVars []string
	for _, v := range []string{config.EnvSourceDir, config.EnvBuildDir, config.EnvTemplatesDir, config.EnvMetricsFile} {
		if os.Getenv(v) != "" {
			activeVars = append(activeVars, v)
		}
	}
	if len(activeVars) > 0 {
		_, _ = dim.Fprintf(w, "\nNote: Environment variables will still be used: %v\n", activeVars)
	}

	return nil
}

// Package root provides the root command for the mori CLI.
package root

import (
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/build"
	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/cmd/completion"
	"github.com/open-cli-collective/mori/internal/cmd/configcmd"
	"github.com/open-cli-collective/mori/internal/cmd/expand"
	"github.com/open-cli-collective/mori/internal/cmd/importcmd"
	initcmd "github.com/open-cli-collective/mori/internal/cmd/init"
	"github.com/open-cli-collective/mori/internal/site"
	"github.com/open-cli-collective/mori/internal/version"
)

// NewCmdRoot creates the root command for mori.
func NewCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mori",
		Short: "A static site builder driven by template macros",
		Long: `mori builds a static site from a directory of Markdown files.

Every Markdown file gets an HTML page made from a template. Macros in the
template, written as {{ ... }}, are expanded: {{ markdown content }} and
{{ markdown <field> }} pull from the page's Markdown, anything else runs
as a Lua script.

Get started by running: mori init`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
	}

	// Global flags
	cmd.PersistentFlags().StringP(cmdutil.FlagConfig, "c", "", "config file (default: mori.yml)")
	cmd.PersistentFlags().Bool(cmdutil.FlagNoColor, false, "disable colored output")
	cmd.PersistentFlags().BoolP(cmdutil.FlagVerbose, "v", false, "enable debug logging")

	cmd.SetVersionTemplate(version.String() + "\n")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return site.NewError(site.KindUsage, c.CommandPath(), "", err)
	})

	// Subcommands
	cmd.AddCommand(initcmd.NewCmdInit())
	cmd.AddCommand(build.NewCmdBuild())
	cmd.AddCommand(expand.NewCmdExpand())
	cmd.AddCommand(importcmd.NewCmdImport())
	cmd.AddCommand(configcmd.NewCmdConfig())
	cmd.AddCommand(completion.NewCmdCompletion())

	return cmd
}

// Execute runs the command tree. Errors cobra raises before a command's
// RunE starts, such as an unknown subcommand or a flag group violation,
// become usage errors.
func Execute(cmd *cobra.Command) error {
	started := false
	markStarted(cmd, &started)

	c, err := cmd.ExecuteC()
	if err != nil && !started && site.KindOf(err) == site.KindUnknown {
		return site.NewError(site.KindUsage, c.CommandPath(), "", err)
	}
	return err
}

func markStarted(cmd *cobra.Command, started *bool) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			*started = true
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		markStarted(sub, started)
	}
}

package configcmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/config"
	"github.com/open-cli-collective/mori/internal/site"
)

// NewCmdTest creates the config test command.
func NewCmdTest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check the configuration against the filesystem",
		Long: `Check that the configuration is valid, the source directory exists
and the template can be found, without building anything.`,
		Example: `  # Check the project before building
  mori config test`,
		Args: cmdutil.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := cmdutil.GlobalsFrom(cmd)
			cfg, err := cmdutil.LoadConfig(g)
			if err != nil {
				return err
			}
			return runTest(cmd.OutOrStdout(), g.NoColor, cfg)
		},
	}

	return cmd
}

// sourceTemplatePath is where the template lives before it is mirrored
// into the build directory, when the templates directory is the default.
func sourceTemplatePath(cfg *config.Config) string {
	c := *cfg
	c.BuildDir = cfg.SourceDir
	return c.TemplatePath()
}

func runTest(w io.Writer, noColor bool, cfg *config.Config) error {
	if noColor {
		color.NoColor = true
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fail := func(kind site.Kind, msg string, err error) error {
		_, _ = red.Fprintf(w, "✗ %s: %v\n", msg, err)
		fmt.Fprintln(w, "\nReconfigure with: mori init")
		return site.NewError(kind, msg, "", err)
	}

	if err := cfg.Validate(); err != nil {
		return fail(site.KindConfig, "Invalid configuration", err)
	}
	_, _ = green.Fprintln(w, "✓ Configuration is valid")

	if info, err := os.Stat(cfg.SourceDir); err != nil || !info.IsDir() {
		return fail(site.KindSetup, "Source directory missing", fmt.Errorf("%s is not a directory", cfg.SourceDir))
	}
	_, _ = green.Fprintf(w, "✓ Source directory %s\n", cfg.SourceDir)

	template := cfg.TemplatePath()
	if cfg.TemplatesDir == "" {
		template = sourceTemplatePath(cfg)
	}
	if _, err := os.Stat(template); err != nil {
		return fail(site.KindSetup, "Template missing", err)
	}
	_, _ = green.Fprintf(w, "✓ Template %s\n", template)

	pages, err := site.ListMarkdown(cfg.SourceDir, sourceTemplatesDir(cfg))
	if err != nil {
		return fail(site.KindIO, "Listing Markdown files failed", err)
	}
	_, _ = green.Fprintf(w, "✓ %d Markdown file(s) to build\n", len(pages))

	return nil
}

func sourceTemplatesDir(cfg *config.Config) string {
	c := *cfg
	c.BuildDir = cfg.SourceDir
	return c.TemplatesPath()
}

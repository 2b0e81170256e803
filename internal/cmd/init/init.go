// Package init provides the init command for mori.
package init

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/config"
	"github.com/open-cli-collective/mori/internal/site"
)

const starterTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{ markdown title }}</title>
</head>
<body>
  <main>
{{ markdown content }}
  </main>
</body>
</html>
`

const starterPage = `---
title: Home
---
# Welcome

This page was generated by mori.
`

type initOptions struct {
	cmdutil.Globals

	sourceDir string
	buildDir  string
	noInput   bool
	force     bool

	out io.Writer
}

// NewCmdInit creates the init command.
func NewCmdInit() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new mori project",
		Long: `Create mori.yml and a starter site.

The source directory gets a templates/template.html and an index.md.
Existing files are never overwritten; mori.yml is only replaced after
confirmation or with --force.`,
		Example: `  # Interactive setup
  mori init

  # Non-interactive, custom directories
  mori init --source site --build public --no-input`,
		Args: cmdutil.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Globals = cmdutil.GlobalsFrom(cmd)
			opts.out = cmd.OutOrStdout()
			return runInit(opts)
		},
	}

	cmd.Flags().StringVar(&opts.sourceDir, "source", "", "source directory (default: src)")
	cmd.Flags().StringVar(&opts.buildDir, "build", "", "build directory (default: build)")
	cmd.Flags().BoolVar(&opts.noInput, "no-input", false, "do not prompt; use flags and defaults")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(opts *initOptions) error {
	configPath := opts.ConfigPath

	if _, err := os.Stat(configPath); err == nil && !opts.force {
		if opts.noInput {
			return site.NewError(site.KindUsage, "init", configPath, errors.New("already exists (use --force to overwrite)"))
		}
		var overwrite bool
		err := huh.NewConfirm().
			Title("Configuration already exists").
			Description(fmt.Sprintf("Overwrite %s?", configPath)).
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(opts.out, "Initialization cancelled.")
			return nil
		}
	}

	cfg := config.Default()
	if opts.sourceDir != "" {
		cfg.SourceDir = opts.sourceDir
	}
	if opts.buildDir != "" {
		cfg.BuildDir = opts.buildDir
	}

	if !opts.noInput {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return site.NewError(site.KindConfig, "invalid configuration", "", err)
	}

	if err := cfg.Save(configPath); err != nil {
		return site.NewError(site.KindIO, "save config", configPath, err)
	}
	fmt.Fprintf(opts.out, "Configuration saved to %s\n", configPath)

	scaffold := []struct {
		path    string
		content string
	}{
		{filepath.Join(cfg.SourceDir, "templates", cfg.TemplateName), starterTemplate},
		{filepath.Join(cfg.SourceDir, "index"+site.MarkdownExt), starterPage},
	}
	for _, f := range scaffold {
		created, err := writeIfMissing(f.path, f.content)
		if err != nil {
			return site.NewError(site.KindIO, "scaffold", f.path, err)
		}
		if created {
			fmt.Fprintf(opts.out, "Created %s\n", f.path)
		}
	}

	fmt.Fprintln(opts.out, "\nYou're all set! Try running:")
	fmt.Fprintln(opts.out, "  mori build")
	return nil
}

func promptConfig(cfg *config.Config) error {
	required := func(name string) func(string) error {
		return func(s string) error {
			if s == "" {
				return fmt.Errorf("%s is required", name)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Source directory").
				Description("Markdown pages, templates and assets").
				Value(&cfg.SourceDir).
				Validate(required("source directory")),

			huh.NewInput().
				Title("Build directory").
				Description("Where the generated site is written").
				Value(&cfg.BuildDir).
				Validate(required("build directory")),

			huh.NewConfirm().
				Title("Allow raw HTML in Markdown?").
				Value(&cfg.UnsafeHTML),
		),
	)
	return form.Run()
}

// writeIfMissing creates path with content unless it already exists.
func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, err
	}
	return true, nil
}

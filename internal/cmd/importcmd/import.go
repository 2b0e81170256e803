// Package importcmd provides the import command.
package importcmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/site"
	"github.com/open-cli-collective/mori/internal/view"
	"github.com/open-cli-collective/mori/pkg/md"
)

type importOptions struct {
	cmdutil.Globals

	outDir        string
	noFrontmatter bool
	force         bool

	out io.Writer
}

// NewCmdImport creates the import command.
func NewCmdImport() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <file.html>...",
		Short: "Convert HTML pages to Markdown sources",
		Long: `Convert existing HTML pages into Markdown files mori can build.

The page's <title> becomes the title frontmatter field, so a template can
use {{ markdown title }}. Output files are named after the input with a .md
extension and written to --out, or the configured source directory.`,
		Example: `  # Import two pages into the source directory
  mori import old/index.html old/about.html

  # Import into a sub-directory without frontmatter
  mori import page.html --out src/legacy --no-frontmatter`,
		Args: cmdutil.UsageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Globals = cmdutil.GlobalsFrom(cmd)
			opts.out = cmd.OutOrStdout()
			if opts.outDir == "" {
				cfg, err := cmdutil.LoadConfig(opts.Globals)
				if err != nil {
					return err
				}
				opts.outDir = cfg.SourceDir
			}
			return runImport(args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory (default: source directory)")
	cmd.Flags().BoolVar(&opts.noFrontmatter, "no-frontmatter", false, "do not write a title frontmatter field")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite existing Markdown files")

	return cmd
}

func runImport(files []string, opts *importOptions) error {
	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return site.NewError(site.KindIO, "create output directory", opts.outDir, err)
	}

	renderer := view.NewRenderer(view.FormatTable, opts.NoColor)
	renderer.SetWriter(opts.out)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return site.NewError(site.KindIO, "read", file, err)
		}

		markdown, err := md.FromHTMLWithOptions(string(data), md.ImportOptions{NoFrontmatter: opts.noFrontmatter})
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", file, err)
		}

		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		dst := filepath.Join(opts.outDir, base+site.MarkdownExt)
		if _, err := os.Stat(dst); err == nil && !opts.force {
			return site.NewError(site.KindIO, "import", dst, errors.New("already exists (use --force to overwrite)"))
		}
		if err := os.WriteFile(dst, []byte(markdown), 0644); err != nil {
			return site.NewError(site.KindIO, "write", dst, err)
		}
		renderer.Success(fmt.Sprintf("%s -> %s", file, dst))
	}
	return nil
}

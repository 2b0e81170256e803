// Package expand provides the expand command.
package expand

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/site"
	"github.com/open-cli-collective/mori/internal/view"
)

// Pass selects which expansion passes run.
const (
	PassAll       = "all"
	PassGenerator = "generator"
	PassScript    = "script"
)

type expandOptions struct {
	cmdutil.Globals

	context string
	pass    string

	stdout io.Writer
	stderr io.Writer
}

// NewCmdExpand creates the expand command.
func NewCmdExpand() *cobra.Command {
	opts := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand <file>",
		Short: "Expand the macros in one file",
		Long: `Expand the macros in a single file and print the result.

Generator shorthand such as {{ markdown title }} reads from the Markdown
file given with --context, which defaults to <file> with a .md extension.
Failed macros are reported on stderr and left in the output as written.`,
		Example: `  # Preview a template against a page
  mori expand src/templates/template.html --context src/index.md

  # Show what the generator pass produces
  mori expand build/index.html --pass generator`,
		Args: cmdutil.UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Globals = cmdutil.GlobalsFrom(cmd)
			opts.stdout = cmd.OutOrStdout()
			opts.stderr = cmd.ErrOrStderr()
			return runExpand(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.context, "context", "", "Markdown file that generator shorthand reads from")
	cmd.Flags().StringVar(&opts.pass, "pass", PassAll, "passes to run: all, generator, script")

	return cmd
}

func runExpand(path string, opts *expandOptions) error {
	switch opts.pass {
	case "", PassAll, PassGenerator, PassScript:
	default:
		return site.NewError(site.KindUsage, "expand", "",
			fmt.Errorf("invalid --pass %q (valid: %s)", opts.pass, strings.Join([]string{PassAll, PassGenerator, PassScript}, ", ")))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return site.NewError(site.KindIO, "read", path, err)
	}

	cfg, err := cmdutil.LoadConfig(opts.Globals)
	if err != nil {
		return err
	}

	mdPath := opts.context
	if mdPath == "" {
		mdPath = strings.TrimSuffix(path, site.HTMLExt) + site.MarkdownExt
		if strings.HasSuffix(path, site.MarkdownExt) {
			mdPath = path
		}
	}

	renderer := view.NewRenderer(view.FormatTable, opts.NoColor)
	renderer.SetWriter(opts.stderr)

	sc := cmdutil.NewScriptContext(cfg)
	defer sc.Close()
	p := site.New(site.Options{}, sc, renderer).
		WithLogger(cmdutil.NewLogger(opts.stderr, opts.Verbose))

	doc := site.Document{Path: mdPath, Text: string(data)}
	var out string
	switch opts.pass {
	case PassGenerator:
		out = p.Generate(doc).Text
	case PassScript:
		out = p.Evaluate(doc.Text).Text
	default:
		out = p.ExpandText(doc).Text()
	}

	_, err = io.WriteString(opts.stdout, out)
	return err
}

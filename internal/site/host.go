package site

import (
	"fmt"

	"github.com/open-cli-collective/mori/pkg/macro"
	"github.com/open-cli-collective/mori/pkg/md"
	"github.com/open-cli-collective/mori/pkg/script"
)

// RenderFunc is the name of the host function that renders Markdown text.
const RenderFunc = "md_to_html"

// RegisterHost binds the Markdown capabilities macros may call:
//
//	md_to_html(text)             render Markdown text
//	markdown_file(path)          render the body of a Markdown file
//	markdown_field(path, name)   read a frontmatter field of a Markdown file
//
// The last two are what generator shorthand expands into.
func RegisterHost(sc *script.Context, conv *md.Converter) {
	sc.Register(RenderFunc, func(args []string) (string, error) {
		if err := wantArgs(args, 1); err != nil {
			return "", err
		}
		return conv.ToHTML([]byte(args[0]))
	})
	sc.Register(macro.ContentFunc, func(args []string) (string, error) {
		if err := wantArgs(args, 1); err != nil {
			return "", err
		}
		return conv.RenderFile(args[0])
	})
	sc.Register(macro.FieldFunc, func(args []string) (string, error) {
		if err := wantArgs(args, 2); err != nil {
			return "", err
		}
		return md.ReadField(args[0], args[1])
	})
}

func wantArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

// Package md provides the Markdown rendering used by mori: Markdown to
// HTML with frontmatter and math support, and HTML back to Markdown for
// importing existing pages.
package md

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Options configures a Converter.
type Options struct {
	// Math enables $inline$ and $$block$$ math.
	Math bool
	// Unsafe passes raw HTML in the Markdown through to the output.
	Unsafe bool
}

// DefaultOptions matches the renderer the build uses unless configured
// otherwise: frontmatter stripped, math on, raw HTML omitted.
func DefaultOptions() Options {
	return Options{Math: true}
}

// Converter renders Markdown documents to HTML.
type Converter struct {
	gm goldmark.Markdown
}

// NewConverter creates a converter for the given options.
func NewConverter(opts Options) *Converter {
	var gopts []goldmark.Option
	if opts.Math {
		gopts = append(gopts, goldmark.WithExtensions(mathjax.MathJax))
	}
	if opts.Unsafe {
		gopts = append(gopts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	return &Converter{gm: goldmark.New(gopts...)}
}

// ToHTML converts a Markdown document to HTML. A leading YAML frontmatter
// block is parsed and left out of the output. An opening "---" that is
// never closed is a thematic break, so the whole document is rendered.
func (c *Converter) ToHTML(markdown []byte) (string, error) {
	if len(markdown) == 0 {
		return "", nil
	}

	body := markdown
	doc, err := ParseDocument(markdown)
	switch {
	case errors.Is(err, ErrMissingClosingDelimiter):
	case err != nil:
		return "", err
	default:
		body = doc.Body
	}

	var buf bytes.Buffer
	if err := c.gm.Convert(body, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderFile reads a Markdown file and converts its body to HTML.
func (c *Converter) RenderFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown file: %w", err)
	}
	out, err := c.ToHTML(data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", path, err)
	}
	return out, nil
}

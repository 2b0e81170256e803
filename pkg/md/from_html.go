package md

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"gopkg.in/yaml.v3"
)

// ImportOptions configures the HTML to markdown conversion.
type ImportOptions struct {
	// Title overrides the title taken from the page's <title> element.
	Title string
	// NoFrontmatter skips writing a frontmatter block.
	NoFrontmatter bool
}

var (
	titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headPattern  = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
)

// FromHTML converts an HTML page to markdown.
func FromHTML(html string) (string, error) {
	return FromHTMLWithOptions(html, ImportOptions{NoFrontmatter: true})
}

// FromHTMLWithOptions converts an HTML page to a markdown source document.
// Unless disabled, the page title becomes the `title` frontmatter field so
// templates can reach it with {{ markdown title }}.
func FromHTMLWithOptions(html string, opts ImportOptions) (string, error) {
	if html == "" {
		return "", nil
	}

	title := opts.Title
	if title == "" {
		if m := titlePattern.FindStringSubmatch(html); len(m) > 1 {
			title = strings.TrimSpace(m[1])
		}
	}

	// <head> only holds metadata; keep it out of the body
	html = headPattern.ReplaceAllString(html, "")

	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", err
	}
	markdown = strings.TrimSpace(markdown)

	if opts.NoFrontmatter || title == "" {
		return markdown, nil
	}

	front, err := yaml.Marshal(map[string]string{"title": title})
	if err != nil {
		return "", err
	}
	return "---\n" + string(front) + "---\n\n" + markdown + "\n", nil
}

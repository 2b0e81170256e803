package md

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document opened a frontmatter
// block with "---" but never closed it.
var ErrMissingClosingDelimiter = errors.New("frontmatter start delimiter found but closing delimiter is missing")

// ErrFieldNotFound is returned by Field when the frontmatter has no such key.
var ErrFieldNotFound = errors.New("frontmatter field not found")

// Document is a Markdown file split into its parts.
type Document struct {
	Frontmatter map[string]any
	Body        []byte
	HasFront    bool
}

// SplitFrontmatter separates `---` delimited frontmatter from the body.
// Documents without a leading delimiter are returned as body only.
func SplitFrontmatter(content []byte) (front []byte, body []byte, had bool, err error) {
	nl := "\n"
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = "\r\n"
	}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---")
	idx := bytes.Index(content[start:], closeSeq)
	for idx >= 0 {
		after := start + idx + len(closeSeq)
		switch {
		case after == len(content):
			return content[start : start+idx+len(nl)], []byte{}, true, nil
		case bytes.HasPrefix(content[after:], []byte(nl)):
			return content[start : start+idx+len(nl)], content[after+len(nl):], true, nil
		}
		next := bytes.Index(content[after:], closeSeq)
		if next < 0 {
			break
		}
		idx = after - start + next
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// ParseDocument splits content and decodes the frontmatter as YAML.
func ParseDocument(content []byte) (*Document, error) {
	front, body, had, err := SplitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if len(bytes.TrimSpace(front)) > 0 {
		if err := yaml.Unmarshal(front, &fields); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}

	return &Document{Frontmatter: fields, Body: body, HasFront: had}, nil
}

// Field returns a frontmatter value as text.
func (d *Document) Field(name string) (string, error) {
	v, ok := d.Frontmatter[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return formatValue(v)
}

// ReadField reads the Markdown file at path and returns one frontmatter field.
func ReadField(path, name string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown file: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return doc.Field(name)
}

func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02"), nil
		}
		return val.Format(time.RFC3339), nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := formatValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	case map[string]any:
		// yaml.v3 emits map keys sorted
		out, err := yaml.Marshal(val)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	default:
		return fmt.Sprint(val), nil
	}
}

package macro

import (
	"fmt"
	"strings"
)

// Names of the host functions that generated script macros call. The
// script host must register capabilities under these names.
const (
	ContentFunc = "markdown_file"
	FieldFunc   = "markdown_field"
)

const (
	contentShorthand = "markdown content"
	fieldPrefix      = "markdown "
)

// GeneratorKind identifies a generator shorthand form.
type GeneratorKind int

const (
	GeneratorUnrecognized GeneratorKind = iota // not a generator; passed through
	GeneratorContent                           // markdown content
	GeneratorField                             // markdown <field>
)

// String returns a readable name for the kind.
func (k GeneratorKind) String() string {
	switch k {
	case GeneratorContent:
		return "content"
	case GeneratorField:
		return "field"
	default:
		return "unrecognized"
	}
}

// Generator is a parsed generator macro.
type Generator struct {
	Kind  GeneratorKind
	Field string // set for GeneratorField
	Raw   string // original inner text
}

// ParseGenerator classifies the inner text of a macro. Matching is
// case-sensitive and ignores surrounding whitespace.
func ParseGenerator(inner string) Generator {
	trimmed := strings.TrimSpace(inner)
	switch {
	case trimmed == contentShorthand:
		return Generator{Kind: GeneratorContent, Raw: inner}
	case strings.HasPrefix(trimmed, fieldPrefix):
		return Generator{
			Kind:  GeneratorField,
			Field: strings.TrimSpace(trimmed[len(fieldPrefix):]),
			Raw:   inner,
		}
	default:
		return Generator{Kind: GeneratorUnrecognized, Raw: inner}
	}
}

// Script returns the complete script macro (markers included) that the
// generator stands for, bound to the document at path. Unrecognized
// generators come back exactly as they were written. The result spans as
// many lines as Raw so line numbers after it stay those of the template.
func (g Generator) Script(path string) string {
	pad := strings.Repeat("\n", strings.Count(g.Raw, "\n"))
	switch g.Kind {
	case GeneratorContent:
		return OpenMarker + " return " + ContentFunc + "(" + luaQuote(path) + ") " + pad + CloseMarker
	case GeneratorField:
		return OpenMarker + " return " + FieldFunc + "(" + luaQuote(path) + ", " + luaQuote(g.Field) + ") " + pad + CloseMarker
	default:
		return OpenMarker + g.Raw + CloseMarker
	}
}

// GenerateFunc returns the resolver for the generator pass. It never fails.
func GenerateFunc(path string) ResolveFunc {
	return func(inner string) (string, error) {
		return ParseGenerator(inner).Script(path), nil
	}
}

// luaQuote renders s as a double-quoted Lua string literal.
func luaQuote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '}', '{':
			// keep "}}" out of the generated macro body
			sb.WriteString(decimalEscape(c))
		default:
			if c < 0x20 || c == 0x7f {
				sb.WriteString(decimalEscape(c))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// decimalEscape always uses three digits so a following digit cannot
// extend the escape.
func decimalEscape(c byte) string {
	return fmt.Sprintf(`\%03d`, c)
}

package macro

import (
	"fmt"
	"strings"
)

// ResolveFunc produces the replacement for a macro given its inner text.
// A non-nil error leaves the macro untouched and records a Diagnostic.
type ResolveFunc func(inner string) (string, error)

// Diagnostic describes a macro that could not be expanded.
type Diagnostic struct {
	Line  int    // 1-based line of the opening marker
	Macro string // literal macro text, markers included
	Err   error
}

// Error formats the diagnostic the way it is printed to users.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("ERROR: At line %d when executing %s\n\t%v", d.Line, d.Macro, d.Err)
}

// Unwrap returns the underlying resolver error.
func (d Diagnostic) Unwrap() error {
	return d.Err
}

// Outcome is the result of resolving a single span. An expanded outcome
// carries the replacement text; a failed one carries the original macro
// text and a diagnostic.
type Outcome struct {
	Span       Span
	Text       string
	Diagnostic *Diagnostic
}

// Expanded builds a successful outcome.
func Expanded(span Span, text string) Outcome {
	return Outcome{Span: span, Text: text}
}

// Failed builds an outcome that echoes the original macro back.
func Failed(span Span, diag Diagnostic) Outcome {
	return Outcome{Span: span, Text: span.Text(), Diagnostic: &diag}
}

// Failed reports whether the macro was left unexpanded.
func (o Outcome) Failed() bool {
	return o.Diagnostic != nil
}

// Result is the output of one pass.
type Result struct {
	Text     string
	Outcomes []Outcome
}

// Diagnostics returns the failed outcomes' diagnostics in document order.
func (r Result) Diagnostics() []Diagnostic {
	var diags []Diagnostic
	for _, o := range r.Outcomes {
		if o.Failed() {
			diags = append(diags, *o.Diagnostic)
		}
	}
	return diags
}

// Expand resolves every macro in text from left to right and returns the
// rewritten text. Spans are collected against the unmodified input first,
// then the output is assembled in a single forward copy, so a replacement
// can never be mistaken for a macro that has not been resolved yet.
func Expand(text string, resolve ResolveFunc) Result {
	spans := Spans(text)
	if len(spans) == 0 {
		return Result{Text: text}
	}

	outcomes := make([]Outcome, 0, len(spans))
	var sb strings.Builder
	sb.Grow(len(text))

	prev := 0
	for _, span := range spans {
		sb.WriteString(text[prev:span.Start])

		out, err := resolve(span.Inner)
		var o Outcome
		if err != nil {
			o = Failed(span, Diagnostic{
				Line:  LineOf(text, span.Start),
				Macro: span.Text(),
				Err:   err,
			})
		} else {
			o = Expanded(span, out)
		}
		sb.WriteString(o.Text)
		outcomes = append(outcomes, o)

		prev = span.End
	}
	sb.WriteString(text[prev:])

	return Result{Text: sb.String(), Outcomes: outcomes}
}

// Package macro expands {{ ... }} macros embedded in text.
//
// A pass finds every macro span in the input, hands each inner text to a
// resolver in document order and rebuilds the text with the results. A
// macro whose resolver fails is kept exactly as written and reported with
// the line it starts on. Text after an unterminated {{ is left alone.
package macro

import "strings"

// Macro delimiters.
const (
	OpenMarker  = "{{"
	CloseMarker = "}}"
)

// Span is a macro found in a document: the half-open range [Start, End)
// covers the markers, Inner is the text strictly between them.
type Span struct {
	Start int
	End   int
	Inner string
}

// Text returns the literal macro text, markers included.
func (s Span) Text() string {
	return OpenMarker + s.Inner + CloseMarker
}

// Scan finds the first macro at or after offset from. The nearest "}}"
// after the opening marker always closes the span, so Inner may contain
// "{{". It reports false when there is no "{{" left or when the last "{{"
// is never closed.
func Scan(text string, from int) (Span, bool) {
	if from < 0 {
		from = 0
	}
	if from >= len(text) {
		return Span{}, false
	}

	open := strings.Index(text[from:], OpenMarker)
	if open < 0 {
		return Span{}, false
	}
	start := from + open

	closing := strings.Index(text[start+len(OpenMarker):], CloseMarker)
	if closing < 0 {
		return Span{}, false
	}
	innerEnd := start + len(OpenMarker) + closing

	return Span{
		Start: start,
		End:   innerEnd + len(CloseMarker),
		Inner: text[start+len(OpenMarker) : innerEnd],
	}, true
}

// Spans returns every macro in text in document order. Scanning stops at
// the first unterminated "{{"; the remainder is not part of any span.
func Spans(text string) []Span {
	var spans []Span
	cursor := 0
	for {
		span, ok := Scan(text, cursor)
		if !ok {
			return spans
		}
		spans = append(spans, span)
		cursor = span.End
	}
}

// LineOf maps a byte offset in text to a 1-based line number by counting
// the newlines strictly before it. Offsets past the end are clamped.
func LineOf(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	if offset <= 0 {
		return 1
	}
	return strings.Count(text[:offset], "\n") + 1
}

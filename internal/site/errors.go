package site

import (
	"errors"
	"fmt"
)

// Kind classifies fatal errors. Macro-level problems are never fatal on
// their own; KindMacro is only produced when a strict build asks for it.
type Kind int

const (
	KindUnknown Kind = iota
	KindUsage
	KindConfig
	KindSetup
	KindIO
	KindMacro
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindConfig:
		return "config"
	case KindSetup:
		return "setup"
	case KindIO:
		return "io"
	case KindMacro:
		return "macro"
	default:
		return "unknown"
	}
}

// ExitCode is the process exit status for errors of this kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage:
		return 2
	case KindConfig:
		return 3
	case KindSetup:
		return 4
	case KindIO:
		return 5
	case KindMacro:
		return 6
	default:
		return 1
	}
}

// Error is a classified fatal error.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind, an operation and an optional path.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// ErrMacroFailures is wrapped by strict builds that left macros unexpanded.
var ErrMacroFailures = errors.New("macros failed to expand")

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// ExitCode maps an error to a process exit status; nil is 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}

// Package tserr defines the caller-distinguishable error kinds shared by
// the ancestor builder, tree sequence builder, and ancestor matcher.
package tserr

import "fmt"

// Kind is a caller-distinguishable error category. Callers that need to
// react differently to, say, a resource exhaustion versus a bad argument
// should switch on Kind rather than parse the error string.
type Kind uint32

const (
	// Generic covers everything not otherwise classified.
	Generic Kind = iota
	// OutOfMemory is returned when an arena or object heap allocation fails.
	OutOfMemory
	// BadParam is returned when an input violates a documented range or
	// ordering precondition (out-of-range site, unsorted edges, ...).
	BadParam
	// UnknownFlag is returned when a configuration flag bit is not
	// recognized by the receiving engine.
	UnknownFlag
)

var kindNames = map[Kind]string{
	Generic:     "Generic",
	OutOfMemory: "OutOfMemory",
	BadParam:    "BadParam",
	UnknownFlag: "UnknownFlag",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Error wraps an underlying message with a Kind so callers can recover it
// with errors.As without parsing text.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind from a format string.
func New(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err is a *Error of kind k.
func Is(err error, k Kind) bool {
	te, ok := err.(*Error)
	if !ok {
		return false
	}
	return te.Kind == k
}

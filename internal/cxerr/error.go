// Package cxerr defines the fatal-error taxonomy shared across convolute's
// packages. Conditions in this taxonomy are returned below cmd/convolute as
// a *Error (possibly wrapped with further context); some lower-level
// failures, such as FFT or WAV codec errors and sndio.ReadChunk's seek and
// read errors, are returned as plain errors. Nothing below that command
// terminates the process itself.
package cxerr

import "fmt"

// Kind classifies a fatal condition.
type Kind int

const (
	// BadArgs indicates the CLI was invoked with the wrong argument shape.
	BadArgs Kind = iota
	// OpenRead indicates an input, IR, or intermediate file could not be opened for reading.
	OpenRead
	// OpenWrite indicates the output file could not be opened for writing.
	OpenWrite
	// BadFormat indicates a sound file is not mono, or otherwise structurally unusable.
	BadFormat
	// RateMismatch indicates the input and IR sample rates differ.
	RateMismatch
	// Alloc indicates a buffer allocation failed.
	Alloc
	// Close indicates an error was reported while closing a sound file.
	Close
	// Unlink indicates a pre-existing output or temporary file could not be removed.
	Unlink
	// Rename indicates the temp-to-final rename failed.
	Rename
)

func (k Kind) String() string {
	switch k {
	case BadArgs:
		return "BadArgs"
	case OpenRead:
		return "OpenRead"
	case OpenWrite:
		return "OpenWrite"
	case BadFormat:
		return "BadFormat"
	case RateMismatch:
		return "RateMismatch"
	case Alloc:
		return "Alloc"
	case Close:
		return "Close"
	case Unlink:
		return "Unlink"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Error is a fatal condition tagged with its Kind, carrying an optional
// wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// match with errors.Is(err, cxerr.New(cxerr.RateMismatch, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// New builds an *Error of the given kind with a message and no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind wrapping a lower-level cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyLocator       = errors.New("empty locator")
	ErrNotLive            = errors.New("source is not live")
	ErrNoMetadata         = errors.New("source has no metadata")
	ErrNoDiagnosticOutput = errors.New("resolver exited before producing diagnostic output")
	ErrTranscoderExit     = errors.New("transcoder exited with failure")
	ErrPipelineClosed     = errors.New("pipeline closed")
)

// Error is a classified pipeline failure. Raw carries the captured diagnostic
// text verbatim when there is any.
type Error struct {
	Kind    ErrorKind
	Op      string
	Locator string
	Raw     []byte
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op, locator string, raw []byte, err error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Locator: locator,
		Raw:     raw,
		Err:     err,
	}
}

// IsKind reports whether err is a pipeline *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// KindOf returns the kind of a pipeline error and whether err was one.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

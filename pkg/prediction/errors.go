package prediction

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the failures a backend can report.
type Kind int

const (
	// KindGeneric covers network, serialization and unexpected status failures.
	KindGeneric Kind = iota
	// KindUnauthorized means the credential was rejected or has expired.
	KindUnauthorized
	// KindIterationNotConfigured means the project has no active trained iteration.
	KindIterationNotConfigured
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindIterationNotConfigured:
		return "iteration_not_configured"
	default:
		return "generic"
	}
}

var (
	ErrUnauthorized           = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrIterationNotConfigured = &Error{Kind: KindIterationNotConfigured, Message: "no trained iteration is configured"}
)

// Operation names the backend call a failure came from.
type Operation int

const (
	OpListProjects Operation = iota
	OpPredict
)

// Error is a classified backend failure. Guidance, when set, replaces the
// default text shown for KindIterationNotConfigured.
type Error struct {
	Kind     Kind
	Status   int
	Message  string
	Guidance string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same non-generic kind, so callers can test
// errors.Is(err, ErrUnauthorized).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != KindGeneric && t.Kind == e.Kind
}

// ClassifyStatus maps a non-success transport status to the taxonomy. A 404
// only means a missing iteration for OpPredict; listing projects has no
// iteration, so there it stays generic.
func ClassifyStatus(op Operation, status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	kind := KindGeneric
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindUnauthorized
	case http.StatusNotFound:
		if op == OpPredict {
			kind = KindIterationNotConfigured
		}
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

// Classify turns any error into an *Error. Already classified errors pass
// through unchanged; everything else becomes KindGeneric.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return &Error{Kind: KindGeneric, Message: err.Error(), Err: err}
}

// KindOf reports the taxonomy kind of err.
func KindOf(err error) Kind {
	if c := Classify(err); c != nil {
		return c.Kind
	}
	return KindGeneric
}

// GuidanceOf returns the backend specific guidance attached to err, if any.
func GuidanceOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Guidance
	}
	return ""
}

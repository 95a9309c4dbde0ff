package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies a failed analysis operation.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindUnreachable         Kind = "service_unreachable"
	KindServiceError        Kind = "service_error"
	KindMalformedResponse   Kind = "malformed_response"
	KindUnsupportedFileType Kind = "unsupported_file_type"
)

// Error is the typed failure surfaced to callers. StatusCode and Body are
// set only for KindServiceError.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Kind == KindServiceError {
		msg = fmt.Sprintf("%s: status %d: %s", msg, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a typed failure with a message and optional cause.
func NewError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

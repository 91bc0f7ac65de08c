package core

import (
	"fmt"
)

type ErrorKind int

const (
	TRANSPORT_ERROR ErrorKind = iota + 1
	UNEXPECTED_CONTENT_TYPE
	INVALID_TOKEN
	USER_NOT_LOGGED
	PARAMETER_ERROR
	PARSE_ERROR
	NOT_FOUND
)

func (k ErrorKind) String() string {
	switch k {
	case TRANSPORT_ERROR:
		return "transport error"
	case UNEXPECTED_CONTENT_TYPE:
		return "unexpected content type"
	case INVALID_TOKEN:
		return "invalid token"
	case USER_NOT_LOGGED:
		return "user not logged"
	case PARAMETER_ERROR:
		return "parameter error"
	case PARSE_ERROR:
		return "parse error"
	case NOT_FOUND:
		return "not found"
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// Error is the error type returned by every f95zone package for expected failure modes.
//
// Compare against the sentinels (ErrTransport, ErrParameter, ...) with errors.Is,
// the comparison only looks at the Kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrTransport             = &Error{Kind: TRANSPORT_ERROR}
	ErrUnexpectedContentType = &Error{Kind: UNEXPECTED_CONTENT_TYPE}
	ErrInvalidToken          = &Error{Kind: INVALID_TOKEN}
	ErrUserNotLogged         = &Error{Kind: USER_NOT_LOGGED}
	ErrParameter             = &Error{Kind: PARAMETER_ERROR}
	ErrParse                 = &Error{Kind: PARSE_ERROR}
	ErrNotFound              = &Error{Kind: NOT_FOUND}
)

// Errorf creates an *Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind around `err`.
func Wrap(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Package errors is the project error type. Import it as perr.
//
// An *Error carries a machine code, a caller facing message and optionally
// the offending field, the operation that failed and the wrapped cause. The
// cause never reaches the wire.
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies an error. The numeric values are part of the JSON
// envelope, append new codes at the end
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable // transient, a retry may succeed
	ErrorCodeConflict
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB
	// ErrorCodeAlignmentRejected is a read below the alignment thresholds. The
	// read is stored as failed and the run continues
	ErrorCodeAlignmentRejected
	// ErrorCodeConfiguration is a contradictory or invalid threshold, it aborts the run
	ErrorCodeConfiguration
	ErrorCodeExternalTool
	// ErrorCodeConsistency is a stage run out of order, e.g. clustering an uncollapsed subject
	ErrorCodeConsistency
)

var codes = [...]struct {
	name   string
	status int
}{
	ErrorCodeUnknown:           {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:             {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:       {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeConflict:          {"conflict", http.StatusConflict},
	ErrorCodeInvalidArgument:   {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:        {"validation", http.StatusBadRequest},
	ErrorCodeJSON:              {"json", http.StatusBadRequest},
	ErrorCodeNotFound:          {"not_found", http.StatusNotFound},
	ErrorCodeDuplicateKey:      {"duplicate_key", http.StatusConflict},
	ErrorCodeDB:                {"db", http.StatusInternalServerError},
	ErrorCodeAlignmentRejected: {"alignment_rejected", http.StatusBadRequest},
	ErrorCodeConfiguration:     {"configuration", http.StatusBadRequest},
	ErrorCodeExternalTool:      {"external_tool", http.StatusServiceUnavailable},
	ErrorCodeConsistency:       {"consistency", http.StatusPreconditionFailed},
}

func (c ErrorCode) String() string {
	if int(c) < len(codes) {
		return codes[c].name
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// HTTPStatusCode maps c to a response status, 500 for codes it does not know
func HTTPStatusCode(c ErrorCode) int {
	if int(c) < len(codes) {
		return codes[c].status
	}
	return http.StatusInternalServerError
}

// ErrNotFound is returned by lookups that found nothing
var ErrNotFound = New(ErrorCodeNotFound, "not found")

type Error struct {
	code  ErrorCode
	msg   string
	field string
	op    string
	orig  error
}

// Wire is the error as it appears in API responses
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// Error renders "op: msg: cause", omitting the parts that are unset
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.op != "" {
		b.WriteString(e.op)
		b.WriteString(": ")
	}
	b.WriteString(e.msg)
	if e.orig != nil {
		b.WriteString(": ")
		b.WriteString(e.orig.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error   { return e.orig }
func (e *Error) Code() ErrorCode { return e.code }
func (e *Error) Field() string   { return e.field }
func (e *Error) Op() string      { return e.op }
func (e *Error) ToWire() Wire    { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom renders any error for a response. Foreign errors become
// ErrorCodeUnknown with their text, nil gives the zero Wire
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root follows Unwrap to the innermost error
func Root(err error) error {
	for {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
}

// As finds the outermost *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf is the code of the outermost *Error in err's chain, or ErrorCodeUnknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// IsFatal reports whether err aborts a whole run instead of one item of it
func IsFatal(err error) bool { return IsCode(err, ErrorCodeConfiguration) }

// WithField returns a copy of err naming the offending field. Errors that are
// not *Error are returned as is
func WithField(err error, field string) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	c.field = field
	return &c
}

// WithOp returns a copy of err tagged with the failing operation
func WithOp(err error, op string) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	c.op = op
	return &c
}

func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

func Newf(code ErrorCode, format string, a ...any) error {
	return New(code, fmt.Sprintf(format, a...))
}

func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return Wrap(orig, code, fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) error     { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error   { return Newf(ErrorCodeInvalidArgument, format, a...) }
func PanicErrf(format string, a ...any) error     { return Newf(ErrorCodePanic, format, a...) }
func Rejectedf(format string, a ...any) error     { return Newf(ErrorCodeAlignmentRejected, format, a...) }
func Configf(format string, a ...any) error       { return Newf(ErrorCodeConfiguration, format, a...) }
func ExternalToolf(format string, a ...any) error { return Newf(ErrorCodeExternalTool, format, a...) }
func Consistencyf(format string, a ...any) error  { return Newf(ErrorCodeConsistency, format, a...) }
func Internalf(format string, a ...any) error     { return Newf(ErrorCodeUnknown, format, a...) }

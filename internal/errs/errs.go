// Package errs defines the error taxonomy shared by the data layer.
//
// Every error raised by the core carries a Kind. Configuration errors point at
// a deployment or metadata defect and are surfaced immediately. Data shape
// problems are normally absorbed by coercion and only appear here when a
// caller asks for them explicitly. I/O errors wrap failures of the document
// store or of peer delivery.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error
type Kind int

const (
	// KindUnknown is reported for errors that do not originate from this package
	KindUnknown Kind = iota
	// KindConfig marks metadata or programming defects
	KindConfig
	// KindDataShape marks malformed input values
	KindDataShape
	// KindIO marks store or network failures
	KindIO
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindDataShape:
		return "data_shape"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error codes
const (
	CodeUnknownOperator   = "unknown_operator"
	CodeUnknownType       = "unknown_type"
	CodeUnknownFormat     = "unknown_format"
	CodeUnknownSchema     = "unknown_schema"
	CodeUnknownBoard      = "unknown_board"
	CodeUnknownCollection = "unknown_collection"
	CodeInvalidSchema     = "invalid_schema"
	CodeInvalidBoard      = "invalid_board"
	CodeSchemaLocked      = "schema_locked"
	CodeEmptyCondition    = "empty_condition"
	CodeInvalidParams     = "invalid_params"
	CodeNotFound          = "not_found"
	CodeConnectFailed     = "connect_failed"
	CodeFindFailed        = "find_failed"
	CodeAddFailed         = "add_failed"
	CodeUpdateFailed      = "update_failed"
	CodeCountFailed       = "count_failed"
	CodeLoadFailed        = "load_failed"
	CodeSignalFailed      = "signal_failed"
)

// Error is a classified error with a stable code
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Config creates a configuration error
func Config(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Code: code, Message: fmt.Sprintf(format, args...)}
}

// DataShape creates a data shape error
func DataShape(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindDataShape, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IO wraps a store or network failure
func IO(code string, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindIO, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first classified error in err's chain
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConfig returns true if err is a configuration error
func IsConfig(err error) bool {
	return KindOf(err) == KindConfig
}

// IsIO returns true if err is an I/O error
func IsIO(err error) bool {
	return KindOf(err) == KindIO
}

// IsDataShape returns true if err is a data shape error
func IsDataShape(err error) bool {
	return KindOf(err) == KindDataShape
}

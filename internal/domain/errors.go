package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a specific error condition.
type ErrorCode string

const (
	ErrValidation ErrorCode = "ValidationError" // HTTP 400
	ErrNotFound   ErrorCode = "NotFound"        // HTTP 404
	ErrStorage    ErrorCode = "StorageError"    // recovered locally, HTTP 500 if it ever escapes
	ErrState      ErrorCode = "StateError"      // HTTP 409
	ErrBadRequest ErrorCode = "BadRequest"      // HTTP 400, undecodable payloads
	ErrInternal   ErrorCode = "InternalServerError"
)

// Field error codes reported inside a ValidationError.
const (
	CodeRequired      = "required"
	CodeInvalid       = "invalid"
	CodeNotPositive   = "not_positive"
	CodeUnknownStatus = "unknown_status"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is the error type returned by the state layer. Kind tells callers which of the
// failure classes occurred; Fields is only populated for ErrValidation.
type Error struct {
	Kind    ErrorCode
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(" [")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Field, f.Code)
		if i == len(e.Fields)-1 {
			b.WriteString("]")
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: ErrNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Fields == nil
}

// NewValidationError builds a validation error from one or more field errors.
func NewValidationError(fields ...FieldError) *Error {
	return &Error{Kind: ErrValidation, Message: "invalid input", Fields: fields}
}

// NewNotFoundError reports that id is absent from the named collection.
func NewNotFoundError(collection, id string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %q not found", collection, id)}
}

// NewStorageError wraps a durable read/write failure for key.
func NewStorageError(key string, err error) *Error {
	return &Error{Kind: ErrStorage, Message: fmt.Sprintf("storage key %q", key), Err: err}
}

// NewStateError reports an invariant the caller violated.
func NewStateError(format string, args ...any) *Error {
	return &Error{Kind: ErrState, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrorCode carried by err, or ErrInternal for foreign errors.
func KindOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorCode) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// ErrorResponse is the standard error format returned to clients via HTTP JSON.
type ErrorResponse struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorResponseFrom converts a state-layer error into a response body and HTTP status.
func ErrorResponseFrom(err error) (ErrorResponse, int) {
	var de *Error
	if !errors.As(err, &de) {
		return NewErrorResponse(ErrInternal, "Internal error", err.Error()), http.StatusInternalServerError
	}
	resp := ErrorResponse{Code: de.Kind, Message: de.Message, Fields: de.Fields}
	switch de.Kind {
	case ErrValidation, ErrBadRequest:
		return resp, http.StatusBadRequest
	case ErrNotFound:
		return resp, http.StatusNotFound
	case ErrState:
		return resp, http.StatusConflict
	default:
		return resp, http.StatusInternalServerError
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}

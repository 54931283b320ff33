package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the api, session, auth and
// favorites packages matches exactly one of these with errors.Is.
var (
	// ErrTransport means no response was received.
	ErrTransport = errors.New("transport error")
	// ErrServer means a non-2xx status or a body that does not fit the schema.
	ErrServer = errors.New("server error")
	// ErrValidation means a field failed a client-side check; nothing was sent.
	ErrValidation = errors.New("validation error")
	// ErrBusiness means a well-formed response carried a rejection message.
	ErrBusiness = errors.New("request rejected")
)

// Specific causes.
var (
	ErrBadCredentials     = errors.New("username or password is incorrect")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrAnonymous          = errors.New("not logged in")
)

// Error carries a kind, the operation that failed, and an optional field
// the failure should be attributed to.
type Error struct {
	Kind    error
	Op      string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// TransportError wraps an error raised before any response arrived.
func TransportError(op string, err error) error {
	return &Error{Kind: ErrTransport, Op: op, Err: err}
}

// ServerError reports an unexpected status or body.
func ServerError(op string, status int, detail string) error {
	msg := fmt.Sprintf("unexpected response (status %d)", status)
	if detail != "" {
		msg += ": " + detail
	}
	return &Error{Kind: ErrServer, Op: op, Message: msg}
}

// BusinessError reports a rejection message from the server.
func BusinessError(op, field, message string, cause error) error {
	return &Error{Kind: ErrBusiness, Op: op, Field: field, Message: message, Err: cause}
}

// FieldError is a single failed client-side check.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects field errors found before any request is made.
type ValidationErrors []FieldError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Add appends an error for field.
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, FieldError{Field: field, Message: message})
}

// Has reports whether field has an error.
func (ve ValidationErrors) Has(field string) bool {
	for _, fe := range ve {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Get returns the messages for field.
func (ve ValidationErrors) Get(field string) []string {
	var messages []string
	for _, fe := range ve {
		if fe.Field == field {
			messages = append(messages, fe.Message)
		}
	}
	return messages
}

// FieldOf returns the field an error is attributed to, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	var ve ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Field
	}
	return ""
}

// Package errors provides custom error types for the enginelink system.
// These errors let callers tell an access-control redirect apart from a
// generic HTML error page, an upstream API error, or a broken network path,
// and check for them programmatically with errors.Is and errors.As.
package errors

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/agentstation/enginelink/pkg/constants"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the enginelink system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrAuthRedirect indicates the backend redirected to an access-control login page
	ErrAuthRedirect = errors.New("authentication redirect")

	// ErrNonJSON indicates the backend answered with an HTML page instead of JSON
	ErrNonJSON = errors.New("non-JSON response")

	// ErrUpstream indicates the backend API returned an error
	ErrUpstream = errors.New("upstream error")

	// ErrTransport indicates a network or transport level failure
	ErrTransport = errors.New("transport failure")

	// ErrNotConnected indicates an operation that needs a live connection ran without one
	ErrNotConnected = errors.New("not connected")
)

// Kind classifies a failure of a remote call.
type Kind string

// Failure kinds, in the order they are checked by KindOf.
const (
	KindNone                   Kind = ""
	KindAuthenticationRedirect Kind = "authentication_redirect"
	KindNonJSONResponse        Kind = "non_json_response"
	KindUpstreamHTTP           Kind = "upstream_http_error"
	KindTransport              Kind = "transport_failure"
	KindCanceled               Kind = "canceled"
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	return string(k)
}

// KindOf returns the failure kind of err. Errors that match none of the
// typed errors are reported as transport failures, since they did not come
// back from the API contract.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	case errors.Is(err, ErrAuthRedirect):
		return KindAuthenticationRedirect
	case errors.Is(err, ErrNonJSON):
		return KindNonJSONResponse
	case errors.Is(err, ErrUpstream):
		return KindUpstreamHTTP
	default:
		return KindTransport
	}
}

// Preview truncates a response body to the diagnostic preview length
// without splitting a UTF-8 sequence.
func Preview(body []byte) string {
	if len(body) <= constants.BodyPreviewLength {
		return string(body)
	}
	cut := constants.BodyPreviewLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}

// AuthRedirectError is returned when an HTML body arrives from the
// access-control login domain after a redirect away from the backend.
type AuthRedirectError struct {
	RedirectURI string
	Preview     string
}

// Error implements the error interface
func (e *AuthRedirectError) Error() string {
	return fmt.Sprintf("redirected to access-control login page %s (check authentication headers)", e.RedirectURI)
}

// Is implements errors.Is support
func (e *AuthRedirectError) Is(target error) bool {
	return target == ErrAuthRedirect
}

// NonJSONResponseError is returned when the backend responds with HTML that
// does not come from the login domain.
type NonJSONResponseError struct {
	URI     string
	Preview string
}

// Error implements the error interface
func (e *NonJSONResponseError) Error() string {
	return fmt.Sprintf("expected JSON from %s but received HTML", e.URI)
}

// Is implements errors.Is support
func (e *NonJSONResponseError) Is(target error) bool {
	return target == ErrNonJSON
}

// UpstreamHTTPError represents an error from the backend API
type UpstreamHTTPError struct {
	StatusCode int
	Reason     string
	Method     string
	URI        string
	Preview    string
	Err        error
}

// Error implements the error interface
func (e *UpstreamHTTPError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.URI, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Method, e.URI, e.Reason)
}

// Unwrap implements errors.Unwrap
func (e *UpstreamHTTPError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UpstreamHTTPError) Is(target error) bool {
	return target == ErrUpstream
}

// NewUpstreamHTTPError creates a new UpstreamHTTPError
func NewUpstreamHTTPError(statusCode int, reason, method, uri string) *UpstreamHTTPError {
	return &UpstreamHTTPError{
		StatusCode: statusCode,
		Reason:     reason,
		Method:     method,
		URI:        uri,
	}
}

// TransportError represents a network level failure unrelated to the API contract
type TransportError struct {
	Message string
	Err     error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError creates a new TransportError
func NewTransportError(err error) *TransportError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &TransportError{Message: message, Err: err}
}

// CanceledError represents an operation stopped by context cancellation
type CanceledError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *CanceledError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("operation %s canceled", e.Operation)
	}
	return "operation canceled"
}

// Unwrap implements errors.Unwrap
func (e *CanceledError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled
}

// NewCanceledError creates a new CanceledError
func NewCanceledError(operation string, err error) *CanceledError {
	return &CanceledError{Operation: operation, Err: err}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "headers"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "watch", "scan"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsAuthRedirect checks if an error is an access-control login redirect
func IsAuthRedirect(err error) bool {
	return errors.Is(err, ErrAuthRedirect)
}

// IsNotConnected checks if an error was caused by a missing connection
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapTransport wraps an error as a TransportError
func WrapTransport(err error) error {
	if err == nil {
		return nil
	}
	return NewTransportError(err)
}

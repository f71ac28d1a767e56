package client

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed Redmine request. The set is closed: every
// error returned by Client.Do carries exactly one of these kinds.
type ErrorKind string

const (
	// KindTimeout is a connect or read timeout.
	KindTimeout ErrorKind = "timeout"

	// KindConnectivity is a name resolution failure.
	KindConnectivity ErrorKind = "connectivity"

	// KindNotFound is HTTP 404.
	KindNotFound ErrorKind = "not_found"

	// KindUnauthorized is HTTP 401.
	KindUnauthorized ErrorKind = "unauthorized"

	// KindForbidden is HTTP 403.
	KindForbidden ErrorKind = "forbidden"

	// KindConflict is HTTP 409, the resource was modified concurrently.
	KindConflict ErrorKind = "conflict"

	// KindValidation is HTTP 422 with an error envelope.
	KindValidation ErrorKind = "validation"

	// KindNotAcceptable is HTTP 406, usually a format the server rejects.
	KindNotAcceptable ErrorKind = "not_acceptable"

	// KindGeneric is every other failure.
	KindGeneric ErrorKind = "generic"
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrTimeout       = errors.New("request timed out")
	ErrConnectivity  = errors.New("could not resolve host")
	ErrNotFound      = errors.New("resource not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("resource modified concurrently")
	ErrValidation    = errors.New("validation failed")
	ErrNotAcceptable = errors.New("not acceptable")
	ErrService       = errors.New("redmine service error")
)

var kindSentinels = map[ErrorKind]error{
	KindTimeout:       ErrTimeout,
	KindConnectivity:  ErrConnectivity,
	KindNotFound:      ErrNotFound,
	KindUnauthorized:  ErrUnauthorized,
	KindForbidden:     ErrForbidden,
	KindConflict:      ErrConflict,
	KindValidation:    ErrValidation,
	KindNotAcceptable: ErrNotAcceptable,
	KindGeneric:       ErrService,
}

// Sentinel returns the sentinel error matching the kind.
func (k ErrorKind) Sentinel() error {
	if err, ok := kindSentinels[k]; ok {
		return err
	}
	return ErrService
}

// APIError is a classified Redmine request failure.
type APIError struct {
	// StatusCode is the HTTP status, 0 for transport failures.
	StatusCode int

	// Kind is the classification.
	Kind ErrorKind

	// Message describes the failure. For validation errors it is the
	// newline-joined Details.
	Message string

	// Details are the messages of a 422 error envelope, in server order.
	Details []string

	// Err is the underlying transport error or *ResponseError.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "redmine %s error", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&builder, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&builder, ": %v", e.Err)
	}
	return builder.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *APIError) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// ResponseError is the low-level failure behind a classified status error:
// the raw status line and body the server answered with.
type ResponseError struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected response %s", e.Status)
}

// ErrorEnvelope is the decoded body of a 422 response.
type ErrorEnvelope struct {
	StatusCode int
	StatusText string
	Messages   []string
}

// IsNotFound reports whether err is a Redmine 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationFailed reports whether err is a Redmine 422 response.
func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ValidationMessages returns the error envelope messages of a 422 response,
// or nil when err is not a validation failure.
func ValidationMessages(err error) []string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindValidation {
		return apiErr.Details
	}
	return nil
}

// DecodeError classifies a response body that could not be decoded.
func DecodeError(err error) *APIError {
	return &APIError{
		Kind:    KindGeneric,
		Message: "decode response",
		Err:     err,
	}
}

package client

import (
	"errors"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "status error with cause",
			apiError: &APIError{
				StatusCode: 404,
				Kind:       KindNotFound,
				Message:    "resource not found",
				Err:        &ResponseError{StatusCode: 404, Status: "404 Not Found"},
			},
			expected: "redmine not_found error (status 404): resource not found: unexpected response 404 Not Found",
		},
		{
			name: "transport error",
			apiError: &APIError{
				Kind:    KindTimeout,
				Message: "request timed out",
				Err:     errors.New("i/o timeout"),
			},
			expected: "redmine timeout error: request timed out: i/o timeout",
		},
		{
			name: "no cause",
			apiError: &APIError{
				StatusCode: 409,
				Kind:       KindConflict,
				Message:    "resource modified concurrently",
			},
			expected: "redmine conflict error (status 409): resource modified concurrently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.apiError.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{Kind: KindGeneric, Err: wrappedErr}

	if unwrapped := apiError.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}

	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestAPIError_IsMatchesOnlyOwnSentinel(t *testing.T) {
	kinds := []ErrorKind{
		KindTimeout, KindConnectivity, KindNotFound, KindUnauthorized, KindForbidden,
		KindConflict, KindValidation, KindNotAcceptable, KindGeneric,
	}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			err := error(&APIError{Kind: kind})
			for _, other := range kinds {
				got := errors.Is(err, other.Sentinel())
				if want := other == kind; got != want {
					t.Errorf("errors.Is(%s, %s sentinel) = %v, want %v", kind, other, got, want)
				}
			}
		})
	}
}

func TestErrorKind_SentinelUnknown(t *testing.T) {
	if ErrorKind("bogus").Sentinel() != ErrService {
		t.Error("unknown kind should map to ErrService")
	}
}

func TestValidationMessages(t *testing.T) {
	err := &APIError{Kind: KindValidation, Details: []string{"a", "b"}}
	if got := ValidationMessages(err); len(got) != 2 {
		t.Errorf("ValidationMessages() = %v, want 2 messages", got)
	}
	if got := ValidationMessages(&APIError{Kind: KindNotFound}); got != nil {
		t.Errorf("ValidationMessages(not found) = %v, want nil", got)
	}
	if !IsValidationFailed(err) || IsNotFound(err) {
		t.Error("helper predicates disagree with kind")
	}
}

func TestDecodeError(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := DecodeError(cause)

	if !errors.Is(err, ErrService) {
		t.Error("decode errors should classify as generic service errors")
	}
	if !errors.Is(err, cause) {
		t.Error("decode errors should retain the cause")
	}
}

package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/Sternrassler/redmine-client/pkg/format"
	"github.com/rs/zerolog"
)

// classifyTransportError maps an error from http.Client.Do to an APIError.
func classifyTransportError(err error, logger zerolog.Logger) *APIError {
	kind := KindGeneric

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		kind = KindConnectivity
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}

	logger.Debug().Str("kind", string(kind)).Err(err).Msg("Transport error classified")

	return &APIError{
		Kind:    kind,
		Message: kind.Sentinel().Error(),
		Err:     err,
	}
}

// classifyStatus maps a status >= 400 to an APIError. For 422 the body is
// decoded as an error envelope with the request's format.
func classifyStatus(statusCode int, status string, body []byte, f format.Format, logger zerolog.Logger) *APIError {
	cause := &ResponseError{StatusCode: statusCode, Status: status, Body: body}
	apiErr := &APIError{StatusCode: statusCode, Err: cause}

	switch statusCode {
	case http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case http.StatusUnauthorized:
		apiErr.Kind = KindUnauthorized
	case http.StatusForbidden:
		apiErr.Kind = KindForbidden
	case http.StatusConflict:
		apiErr.Kind = KindConflict
	case http.StatusNotAcceptable:
		apiErr.Kind = KindNotAcceptable
	case http.StatusUnprocessableEntity:
		apiErr.Kind = KindValidation
		envelope := decodeErrorEnvelope(statusCode, status, body, f)
		apiErr.Details = envelope.Messages
		apiErr.Message = strings.Join(envelope.Messages, "\n")
	default:
		apiErr.Kind = KindGeneric
		apiErr.Message = status
	}

	if apiErr.Message == "" {
		apiErr.Message = apiErr.Kind.Sentinel().Error()
	}

	logger.Debug().
		Int("status", statusCode).
		Str("kind", string(apiErr.Kind)).
		Msg("Error classified")

	return apiErr
}

// decodeErrorEnvelope reads the messages of a 422 body. An unreadable body
// yields an envelope without messages.
func decodeErrorEnvelope(statusCode int, status string, body []byte, f format.Format) ErrorEnvelope {
	envelope := ErrorEnvelope{StatusCode: statusCode, StatusText: status}
	if len(body) == 0 {
		return envelope
	}
	messages, err := f.DecodeErrors(body)
	if err == nil {
		envelope.Messages = messages
	}
	return envelope
}

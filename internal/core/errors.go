package core

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when admission is denied for the current window.
// No network call was made and no limiter state changed.
var ErrRateLimited = errors.New("rate limit exceeded")

// ConfigurationError reports an invalid construction parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// EncodingError reports a document that could not be serialized.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode document: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// TransportError wraps whatever the transport reported for an admitted call.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// OutcomeOf classifies a submission error.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSubmitted
	}

	var (
		transportErr *TransportError
		encodingErr  *EncodingError
	)
	switch {
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	case errors.As(err, &transportErr):
		return OutcomeTransportError
	case errors.As(err, &encodingErr):
		return OutcomeEncodingError
	default:
		return OutcomeFailed
	}
}

package luxos

import (
	"errors"
	"fmt"
)

var (
	// ErrAllTransportsExhausted indicates no transport candidate produced a response.
	ErrAllTransportsExhausted = errors.New("all transports exhausted")

	// ErrAuthenticationFailed indicates every credential format and the
	// unauthenticated probe failed.
	ErrAuthenticationFailed = errors.New("authentication failed: all methods exhausted")
)

// TransportError represents a network-level failure: unreachable host,
// timeout, or malformed responses from every candidate. It is always
// recoverable at the call site.
type TransportError struct {
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError indicates the device received and understood a command
// but explicitly declined it (structured error field in a well-formed
// response). Distinguished from TransportError: the endpoint was reachable.
type ApplicationError struct {
	Command string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("device rejected %q: %s", e.Command, e.Message)
}

// IsTransportError reports whether err is a transport-level failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsApplicationError reports whether err is an explicit device rejection.
func IsApplicationError(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

// IsProtocolError reports whether err originated at the device protocol
// layer (transport, application, or authentication), as opposed to an
// unexpected programming or runtime error.
func IsProtocolError(err error) bool {
	return IsTransportError(err) || IsApplicationError(err) || errors.Is(err, ErrAuthenticationFailed)
}

package asearcher

import (
	"errors"
	"fmt"
	"time"
)

// TransportError is returned when a request never produced an HTTP response:
// connection refused, DNS failure, client timeout.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the service answered but broke the contract:
// a status other than 200, an undecodable body, or a missing required field.
type ProtocolError struct {
	Op         string
	StatusCode int
	Field      string
	Body       string
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: response is missing required field %q", e.Op, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: HTTP error %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: HTTP error %d", e.Op, e.StatusCode)
	}
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a query did not reach a terminal status
// within the polling ceiling.
type TimeoutError struct {
	QueryID string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query %s did not finish within %s", e.QueryID, e.Timeout)
}

// RemoteReportedError is returned when the service reports the query ended
// with status "error".
type RemoteReportedError struct {
	QueryID string
	Message string
}

func (e *RemoteReportedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("query %s failed", e.QueryID)
	}
	return fmt.Sprintf("query %s failed: %s", e.QueryID, e.Message)
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is, or wraps, a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

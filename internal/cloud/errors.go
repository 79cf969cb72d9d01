package cloud

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWaitTimeout reports that a stack did not finish deleting within the allowed wait.
var ErrWaitTimeout = errors.New("timed out waiting for stack deletion")

// Throttling signals recognised by IsRetryable.
const (
	ThrottlingException       = "ThrottlingException"
	TooManyRequestsException  = "TooManyRequestsException"
	RequestLimitExceeded      = "RequestLimitExceeded"
	RequestThrottledCode      = "RequestThrottled"
	rateExceededMessageMarker = "Rate exceeded"
)

var throttlingErrorNames = map[string]struct{}{
	ThrottlingException:      {},
	TooManyRequestsException: {},
	RequestLimitExceeded:     {},
}

// APIError is the normalised shape of an error returned by a control plane.
// Providers translate their SDK errors into it so classification stays provider-neutral.
type APIError struct {
	// Name is the error type reported by the service, e.g. "ThrottlingException".
	Name string
	// Code is a secondary error code some services report, e.g. "RequestThrottled".
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Name)
	if e.Code != "" && e.Code != e.Name {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrorName returns the name of the API error carried by err, or "" when err is
// not a recognised API error.
func ErrorName(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Name
	}
	return ""
}

// IsRetryable reports whether err is a transient throttling signal.
//
// Errors without an API error name cannot be proven transient and are never
// retried. Named errors are retried only when the name is on the throttling
// allow-list, the code is RequestThrottled, or the message says "Rate exceeded".
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Name == "" {
		return false
	}

	if _, ok := throttlingErrorNames[apiErr.Name]; ok {
		return true
	}
	if apiErr.Code == RequestThrottledCode {
		return true
	}
	return strings.Contains(apiErr.Message, rateExceededMessageMarker)
}

package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a fetch failed.
type FailureKind string

const (
	FailureNetwork   FailureKind = "network"   // transport, DNS, timeout
	FailureNotFound  FailureKind = "not_found" // non-success status, e.g. no data for that date
	FailureMalformed FailureKind = "malformed" // success but the body does not match the expected shape
)

// GenericNetworkReason is the reason reported when the backend gave no message.
const GenericNetworkReason = "network failure: the storm service could not be reached"

// Failure is the error type produced at the backend boundary.
type Failure struct {
	Kind   FailureKind
	Status int // HTTP status, 0 when no response was received
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds a Failure. An empty reason becomes GenericNetworkReason.
func NewFailure(kind FailureKind, status int, reason string, err error) *Failure {
	if reason == "" {
		reason = GenericNetworkReason
	}
	return &Failure{Kind: kind, Status: status, Reason: reason, Err: err}
}

// AsFailure converts any error into a Failure. Errors that are not already
// failures are treated as network failures with the generic reason.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return NewFailure(FailureNetwork, 0, "", err)
}

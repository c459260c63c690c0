package domain

import (
	"errors"
	"fmt"
)

// Aspect failure causes. Every failure of a single aspect is folded into
// one of these; none of them aborts the run.
const (
	CauseAdapterError        = "adapter_error"
	CauseClientError         = "client_error"
	CauseValidationExhausted = "validation_exhausted"
	CauseTimeout             = "timeout"
)

// ErrToolUnavailable signals that an analyzer's binary is not installed
// on this machine. Runners treat it as a skip, not an aspect failure.
var ErrToolUnavailable = errors.New("analyzer tool not installed")

// AspectError reports that one review aspect failed: an analyzer crashed,
// an AI response stayed invalid after the repair budget, or the call was
// abandoned at a deadline. It is always non-fatal to the pipeline; the
// scheduler collects these and proceeds with the aspects that succeeded.
type AspectError struct {
	Aspect string
	Cause  string
	Err    error
}

func NewAspectError(aspect, cause string, err error) *AspectError {
	return &AspectError{Aspect: aspect, Cause: cause, Err: err}
}

func (e *AspectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aspect %s failed (%s): %v", e.Aspect, e.Cause, e.Err)
	}
	return fmt.Sprintf("aspect %s failed (%s)", e.Aspect, e.Cause)
}

func (e *AspectError) Unwrap() error { return e.Err }

// ConfigError reports a malformed aspect list or blocking policy. Unlike
// AspectError it is fatal and raised before the pipeline starts, never
// during execution.
type ConfigError struct {
	Reason string
	Err    error
}

func NewConfigError(reason string, err error) *ConfigError {
	return &ConfigError{Reason: reason, Err: err}
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// AspectFailure is the serializable form of an AspectError carried in the
// final report.
type AspectFailure struct {
	Aspect string `json:"aspect"`
	Cause  string `json:"cause"`
	Detail string `json:"detail,omitempty"`
}

// FailureFromError flattens an AspectError for reporting.
func FailureFromError(e *AspectError) AspectFailure {
	f := AspectFailure{Aspect: e.Aspect, Cause: e.Cause}
	if e.Err != nil {
		f.Detail = e.Err.Error()
	}
	return f
}

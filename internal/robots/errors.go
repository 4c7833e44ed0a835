package robots

import (
	"fmt"

	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/failure"
)

type RobotsErrorCause string

const (
	// ErrCauseRepeatedFetchFailure = "repeated fetch failure"
	ErrCauseDisallowRoot         = "root disallowed to be crawled"
	ErrCauseInvalidRobotsUrl     = "invalid robots.txt URL"
	ErrCausePreFetchFailure      = "failed before making fetch"
	ErrCauseHttpFetchFailure     = "failed to fetch"
	ErrCauseHttpTooManyRequests  = "too many requests"
	ErrCauseHttpTooManyRedirects = "too many redirects"
	ErrCauseHttpServerError      = "http server error"
	ErrCauseHttpUnexpectedStatus = "unexpected http status"
	ErrCauseParseError           = "failed to parse robots.txt"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s", e.Cause)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}

// mapRobotsErrorToTelemetryCause maps robots-local error semantics to the
// canonical telemetry.ErrorCause table.
//
// This mapping is observational only and must never be used to derive
// control-flow decisions.
func mapRobotsErrorToTelemetryCause(err *RobotsError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseDisallowRoot:
		return telemetry.CausePolicyDisallow
	case ErrCauseInvalidRobotsUrl:
		return telemetry.CauseInvariantViolation
	case ErrCausePreFetchFailure:
		return telemetry.CauseUnknown
	case ErrCauseHttpFetchFailure:
		return telemetry.CauseNetworkFailure
	case ErrCauseHttpTooManyRequests:
		return telemetry.CauseRateLimited
	case ErrCauseHttpTooManyRedirects:
		return telemetry.CauseNetworkFailure
	case ErrCauseHttpServerError:
		return telemetry.CauseNetworkFailure
	case ErrCauseHttpUnexpectedStatus:
		return telemetry.CauseNetworkFailure
	case ErrCauseParseError:
		return telemetry.CauseContentInvalid
	default:
		return telemetry.CauseUnknown
	}
}

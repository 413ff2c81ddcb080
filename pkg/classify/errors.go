package classify

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

// ModelNotFoundError indicates the requested model id does not exist or is
// not available to the caller. A configuration problem, never retryable.
type ModelNotFoundError struct {
	Message string
	Status  int
	// Cause is the structured provider error this was classified from,
	// when one could be parsed.
	Cause *api.APIError
}

func (e *ModelNotFoundError) Error() string {
	return e.Message
}

func (e *ModelNotFoundError) HTTPStatus() int {
	return e.Status
}

func (e *ModelNotFoundError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// ValidationRequiredError indicates the caller's account requires an
// out-of-band validation step before requests are accepted. UserHandled
// starts false; the surrounding system sets it once a human has acted on
// the links, so the error is not surfaced again.
type ValidationRequiredError struct {
	Message               string
	Status                int
	UserHandled           bool
	ValidationLink        string
	ValidationDescription string
	LearnMoreURL          string
	Cause                 *api.APIError
}

func (e *ValidationRequiredError) Error() string {
	return e.Message
}

func (e *ValidationRequiredError) HTTPStatus() int {
	return e.Status
}

func (e *ValidationRequiredError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

func (e *ValidationRequiredError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("message", e.Message)
	if e.ValidationLink != "" {
		ev.Str("validation_link", e.ValidationLink)
	}
	if e.LearnMoreURL != "" {
		ev.Str("learn_more_url", e.LearnMoreURL)
	}
}

// TerminalQuotaError is a quota exhaustion that must not be retried
// automatically, such as a daily limit.
type TerminalQuotaError struct {
	Message string
	// RetryDelay is the provider's suggested wait, when one was attached.
	// Informational only; the error stays terminal.
	RetryDelay *time.Duration
	Cause      *api.APIError
}

func (e *TerminalQuotaError) Error() string {
	return e.Message
}

func (e *TerminalQuotaError) HTTPStatus() int {
	return http.StatusTooManyRequests
}

func (e *TerminalQuotaError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// RetryableQuotaError is a rate limit the caller may retry after RetryDelay,
// or after a policy default when the provider gave no hint.
type RetryableQuotaError struct {
	Message    string
	RetryDelay *time.Duration
	Cause      *api.APIError
}

func (e *RetryableQuotaError) Error() string {
	return e.Message
}

func (e *RetryableQuotaError) HTTPStatus() int {
	return http.StatusTooManyRequests
}

func (e *RetryableQuotaError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

func delayPtr(d time.Duration) *time.Duration {
	return &d
}

package classify

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

func TestClassifyModelNotFound(t *testing.T) {
	err := &api.APIError{
		Code:    404,
		Status:  "NOT_FOUND",
		Message: "models/gemini-nonexistent is not found",
		Details: []api.ErrorDetail{
			{Type: api.DetailTypeErrorInfo, Domain: "googleapis.com", Reason: "MODEL_NOT_FOUND"},
		},
	}

	classified := Classify(err)

	var notFound *ModelNotFoundError
	require.ErrorAs(t, classified, &notFound)
	assert.Equal(t, 404, notFound.Status)
	assert.Equal(t, "models/gemini-nonexistent is not found", notFound.Message)
	assert.Same(t, err, notFound.Cause)
}

func TestClassifyValidationRequired(t *testing.T) {
	err := &api.APIError{
		Code:    403,
		Status:  "PERMISSION_DENIED",
		Message: "Account validation required",
		Details: []api.ErrorDetail{
			{
				Type:   api.DetailTypeErrorInfo,
				Domain: "cloudcode-pa.googleapis.com",
				Reason: "VALIDATION_REQUIRED",
			},
			{
				Type: api.DetailTypeHelp,
				Links: []api.HelpLink{
					{URL: "https://example.com/validate", Description: "Validate your account"},
					{URL: "https://support.google.com/gemini", Description: "Learn More"},
				},
			},
		},
	}

	classified := Classify(err)

	var validation *ValidationRequiredError
	require.ErrorAs(t, classified, &validation)
	// starts unhandled; the caller flips it once a human acted on the links
	assert.False(t, validation.UserHandled)
	assert.Same(t, err, validation.Cause)
	assert.Equal(t, "https://example.com/validate", validation.ValidationLink)
	assert.Equal(t, "Validate your account", validation.ValidationDescription)
	assert.Equal(t, "https://support.google.com/gemini", validation.LearnMoreURL)
}

func TestClassifyValidationRequiredMetadataFallback(t *testing.T) {
	err := &api.APIError{
		Code:    403,
		Message: "Account validation required",
		Details: []api.ErrorDetail{
			{
				Type:     api.DetailTypeErrorInfo,
				Domain:   "cloudcode-pa.googleapis.com",
				Reason:   "VALIDATION_REQUIRED",
				Metadata: map[string]string{"validation_link": "https://example.com/validate"},
			},
		},
	}

	classified := Classify(err)

	var validation *ValidationRequiredError
	require.ErrorAs(t, classified, &validation)
	assert.Equal(t, "https://example.com/validate", validation.ValidationLink)
}

func TestClassifyValidationNotRequiredForUnknownDomain(t *testing.T) {
	err := &api.APIError{
		Code:    403,
		Message: "forbidden",
		Details: []api.ErrorDetail{
			{Type: api.DetailTypeErrorInfo, Domain: "evil.example.com", Reason: "VALIDATION_REQUIRED"},
		},
	}

	classified := Classify(err)
	assert.Equal(t, error(err), classified)
}

func TestClassifyQuota(t *testing.T) {
	tests := []struct {
		name      string
		err       *api.APIError
		terminal  bool
		wantDelay *time.Duration
	}{
		{
			name: "daily quota is terminal",
			err: &api.APIError{
				Code:    429,
				Message: "quota exceeded",
				Details: []api.ErrorDetail{
					{
						Type:       api.DetailTypeQuotaFailure,
						Violations: []api.QuotaViolation{{QuotaID: "GenerateContentPerDayPerProjectPerUser"}},
					},
					{Type: api.DetailTypeRetryInfo, RetryDelay: "30s"},
				},
			},
			terminal: true,
		},
		{
			name: "rate limit exceeded with retry info",
			err: &api.APIError{
				Code:    429,
				Message: "rate limited",
				Details: []api.ErrorDetail{
					{Type: api.DetailTypeRetryInfo, RetryDelay: "2s"},
					{Type: api.DetailTypeErrorInfo, Domain: "googleapis.com", Reason: "RATE_LIMIT_EXCEEDED"},
				},
			},
			wantDelay: delayPtr(2 * time.Second),
		},
		{
			name: "rate limit exceeded without retry info defaults to 10s",
			err: &api.APIError{
				Code:    429,
				Message: "rate limited",
				Details: []api.ErrorDetail{
					{Type: api.DetailTypeErrorInfo, Domain: "googleapis.com", Reason: "RATE_LIMIT_EXCEEDED"},
				},
			},
			wantDelay: delayPtr(10 * time.Second),
		},
		{
			name: "quota exhausted is terminal",
			err: &api.APIError{
				Code:    429,
				Message: "quota exhausted",
				Details: []api.ErrorDetail{
					{Type: api.DetailTypeErrorInfo, Domain: "googleapis.com", Reason: "QUOTA_EXHAUSTED"},
				},
			},
			terminal: true,
		},
		{
			name: "per minute violation gets a fixed 60s delay",
			err: &api.APIError{
				Code:    429,
				Message: "quota exceeded",
				Details: []api.ErrorDetail{
					{
						Type:       api.DetailTypeQuotaFailure,
						Violations: []api.QuotaViolation{{QuotaID: "GenerateContentPerMinutePerProject"}},
					},
				},
			},
			wantDelay: delayPtr(60 * time.Second),
		},
		{
			name: "per minute quota_limit metadata gets a fixed 60s delay",
			err: &api.APIError{
				Code:    429,
				Message: "quota exceeded",
				Details: []api.ErrorDetail{
					{
						Type:     api.DetailTypeErrorInfo,
						Domain:   "googleapis.com",
						Reason:   "SOMETHING_ELSE",
						Metadata: map[string]string{"quota_limit": "GenerateRequestsPerMinutePerProjectPerModel"},
					},
				},
			},
			wantDelay: delayPtr(60 * time.Second),
		},
		{
			name: "unrecognized details stay retryable without delay",
			err: &api.APIError{
				Code:    429,
				Message: "quota exceeded",
				Details: []api.ErrorDetail{
					{Type: api.DetailTypeErrorInfo, Domain: "googleapis.com", Reason: "SOMETHING_ELSE"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)

			if tt.terminal {
				var terminal *TerminalQuotaError
				require.ErrorAs(t, classified, &terminal)
				assert.Same(t, tt.err, terminal.Cause)
				return
			}

			var retryable *RetryableQuotaError
			require.ErrorAs(t, classified, &retryable)
			assert.Same(t, tt.err, retryable.Cause)
			if tt.wantDelay == nil {
				assert.Nil(t, retryable.RetryDelay)
			} else {
				require.NotNil(t, retryable.RetryDelay)
				assert.Equal(t, *tt.wantDelay, *retryable.RetryDelay)
			}
		})
	}
}

func TestClassifyDailyQuotaMessage(t *testing.T) {
	err := &api.APIError{
		Code: 429,
		Details: []api.ErrorDetail{
			{
				Type:       api.DetailTypeQuotaFailure,
				Violations: []api.QuotaViolation{{QuotaID: "GenerateContentPerDayPerProjectPerUser"}},
			},
		},
	}

	classified := Classify(err)

	var terminal *TerminalQuotaError
	require.ErrorAs(t, classified, &terminal)
	assert.Contains(t, terminal.Message, "daily quota")
}

func TestClassifyRetryInfoFractionalSeconds(t *testing.T) {
	err := &api.APIError{
		Code:    429,
		Message: "quota exceeded",
		Details: []api.ErrorDetail{
			{Type: api.DetailTypeRetryInfo, RetryDelay: "34.07s"},
		},
	}

	classified := Classify(err)

	var retryable *RetryableQuotaError
	require.ErrorAs(t, classified, &retryable)
	require.NotNil(t, retryable.RetryDelay)
	assert.InDelta(t, 34070, retryable.RetryDelay.Milliseconds(), 1)
	assert.Contains(t, retryable.Message, "34.07s")
}

func TestClassifyRetryPhrase(t *testing.T) {
	err := errors.New("resource exhausted. Please retry in 15s")

	classified := Classify(err)

	var retryable *RetryableQuotaError
	require.ErrorAs(t, classified, &retryable)
	require.NotNil(t, retryable.RetryDelay)
	assert.Equal(t, 15*time.Second, *retryable.RetryDelay)
	// no structured payload was available to attach
	assert.Nil(t, retryable.Cause)
}

func TestClassifyRetryPhraseMilliseconds(t *testing.T) {
	classified := Classify(errors.New("Please retry in 500ms"))

	var retryable *RetryableQuotaError
	require.ErrorAs(t, classified, &retryable)
	require.NotNil(t, retryable.RetryDelay)
	assert.Equal(t, 500*time.Millisecond, *retryable.RetryDelay)
}

func TestClassifyBareRateLimit(t *testing.T) {
	classified := Classify(&api.APIError{Code: 429, Message: "too many requests"})

	var retryable *RetryableQuotaError
	require.ErrorAs(t, classified, &retryable)
	assert.Nil(t, retryable.RetryDelay)
}

func TestClassifyEmbeddedJSONError(t *testing.T) {
	raw := errors.New(`request failed: {"error":{"code":429,"message":"quota exceeded","details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"3s"}]}}`)

	classified := Classify(raw)

	var retryable *RetryableQuotaError
	require.ErrorAs(t, classified, &retryable)
	require.NotNil(t, retryable.RetryDelay)
	assert.Equal(t, 3*time.Second, *retryable.RetryDelay)
}

func TestClassifyPassThrough(t *testing.T) {
	err := errors.New("connection reset by peer")
	assert.Equal(t, err, Classify(err))
	assert.NoError(t, Classify(nil))
}

func TestClassifyIsPure(t *testing.T) {
	err := &api.APIError{
		Code:    429,
		Message: "rate limited",
		Details: []api.ErrorDetail{
			{Type: api.DetailTypeErrorInfo, Domain: "googleapis.com", Reason: "RATE_LIMIT_EXCEEDED"},
		},
	}

	first := Classify(err)
	second := Classify(err)

	assert.IsType(t, first, second)
	assert.Equal(t, first.Error(), second.Error())
}

func TestParseRetryDelay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"500ms", 500 * time.Millisecond, true},
		{"10s", 10 * time.Second, true},
		{"0s", 0, true},
		{" 2s ", 2 * time.Second, true},
		{"5m", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"-3s", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseRetryDelay(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

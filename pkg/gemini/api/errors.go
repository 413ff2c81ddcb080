package api

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Detail type URLs as used by the generative-language API error payloads.
const (
	DetailTypeErrorInfo    = "type.googleapis.com/google.rpc.ErrorInfo"
	DetailTypeQuotaFailure = "type.googleapis.com/google.rpc.QuotaFailure"
	DetailTypeRetryInfo    = "type.googleapis.com/google.rpc.RetryInfo"
	DetailTypeHelp         = "type.googleapis.com/google.rpc.Help"
)

type QuotaViolation struct {
	QuotaID string `json:"quotaId,omitempty"`
	Subject string `json:"subject,omitempty"`
}

type HelpLink struct {
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// ErrorDetail is one tagged payload inside an APIError. Which fields are
// populated depends on Type.
type ErrorDetail struct {
	Type string `json:"@type,omitempty"`

	// ErrorInfo
	Domain   string            `json:"domain,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	// QuotaFailure
	Violations []QuotaViolation `json:"violations,omitempty"`

	// RetryInfo, a duration string such as "34.07s" or "500ms"
	RetryDelay string `json:"retryDelay,omitempty"`

	// Help
	Links []HelpLink `json:"links,omitempty"`
}

// APIError is the structured error payload the provider attaches to failed
// requests. Code is the HTTP-like status, Status the RPC status string.
type APIError struct {
	Code    int           `json:"code,omitempty"`
	Status  string        `json:"status,omitempty"`
	Message string        `json:"message,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "API error " + strconv.Itoa(e.Code)
}

// ErrorInfoDetails returns every ErrorInfo detail, in payload order.
func (e *APIError) ErrorInfoDetails() []ErrorDetail {
	return e.detailsOfType(DetailTypeErrorInfo)
}

func (e *APIError) QuotaFailureDetails() []ErrorDetail {
	return e.detailsOfType(DetailTypeQuotaFailure)
}

func (e *APIError) RetryInfoDetails() []ErrorDetail {
	return e.detailsOfType(DetailTypeRetryInfo)
}

func (e *APIError) HelpDetails() []ErrorDetail {
	return e.detailsOfType(DetailTypeHelp)
}

func (e *APIError) detailsOfType(typeURL string) []ErrorDetail {
	var out []ErrorDetail
	for _, d := range e.Details {
		if d.Type == typeURL {
			out = append(out, d)
		}
	}
	return out
}

func (e *APIError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("code", e.Code)
	if e.Status != "" {
		ev.Str("status", e.Status)
	}
	ev.Str("message", e.Message)
	if len(e.Details) > 0 {
		ev.Int("num_details", len(e.Details))
	}
}

var _ zerolog.LogObjectMarshaler = (*APIError)(nil)

// envelope is the {"error": {...}} wrapper the HTTP API responds with.
type envelope struct {
	Error *APIError `json:"error"`
}

// ParseAPIError extracts a structured APIError from an arbitrary failure
// value. It unwraps the error chain first, then falls back to locating a
// JSON error payload embedded in the error message.
func ParseAPIError(err error) (*APIError, bool) {
	if err == nil {
		return nil, false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return parseEmbeddedJSON(err.Error())
}

func parseEmbeddedJSON(msg string) (*APIError, bool) {
	start := strings.Index(msg, "{")
	if start < 0 {
		return nil, false
	}
	raw := []byte(msg[start:])

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Code != 0 {
		return env.Error, true
	}

	var direct APIError
	if err := json.Unmarshal(raw, &direct); err == nil && direct.Code != 0 {
		return &direct, true
	}
	return nil, false
}

var statusRe = regexp.MustCompile(`(?i)\bstatus(?:\s+code)?[:\s]+(\d{3})\b`)

// StatusCode determines the HTTP-like status of a failure value: the parsed
// APIError code when present, an HTTPStatus() accessor anywhere in the
// chain, or a "status NNN" marker in the message.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	if apiErr, ok := ParseAPIError(err); ok && apiErr.Code != 0 {
		return apiErr.Code
	}
	type statusser interface{ HTTPStatus() int }
	for e := err; e != nil; e = errors.Unwrap(e) {
		if s, ok := e.(statusser); ok {
			return s.HTTPStatus()
		}
	}
	if m := statusRe.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 0
}

// ErrInvalidStreamData signals that the underlying stream carried
// structurally invalid data, as opposed to a network failure.
var ErrInvalidStreamData = errors.New("invalid stream data")

// IsUnauthorized reports whether the failure is an authentication problem
// the caller must resolve by re-authenticating.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	switch StatusCode(err) {
	case 401:
		return true
	}
	if apiErr, ok := ParseAPIError(err); ok && apiErr.Status == "UNAUTHENTICATED" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unauthorized")
}

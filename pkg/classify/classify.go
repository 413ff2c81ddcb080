package classify

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

// providerDomains is the allow-list of provider-internal API domains whose
// ErrorInfo reasons the classifier trusts.
var providerDomains = map[string]struct{}{
	"googleapis.com":                    {},
	"generativelanguage.googleapis.com": {},
	"cloudcode-pa.googleapis.com":       {},
	"staging-cloudcode-pa.sandbox.googleapis.com": {},
}

// supportHosts are URL hosts that qualify a Help link as a learn-more link
// even without a "learn more" label.
var supportHosts = map[string]struct{}{
	"support.google.com":    {},
	"developers.google.com": {},
}

const (
	reasonValidationRequired = "VALIDATION_REQUIRED"
	reasonRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	reasonQuotaExhausted     = "QUOTA_EXHAUSTED"

	defaultRateLimitDelay = 10 * time.Second
	perMinuteDelay        = 60 * time.Second
)

// input is the pre-digested view of a failure the rules match against.
type input struct {
	raw     error
	apiErr  *api.APIError
	status  int
	message string
}

// rule inspects one failure shape; it returns (nil, false) to pass the
// failure to the next rule.
type rule func(in input) (error, bool)

// rules is ordered: the first match wins.
var rules = []rule{
	classifyModelNotFound,
	classifyValidationRequired,
	classifyStructuredQuota,
	classifyRetryPhrase,
	classifyBareRateLimit,
}

// Classify maps a raw failure to one of the typed errors in this package,
// or returns it unchanged when no rule matches. Pure: it inspects the value
// and never mutates it, so identical inputs classify identically.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	in := input{
		raw:    err,
		status: api.StatusCode(err),
	}
	if apiErr, ok := api.ParseAPIError(err); ok {
		in.apiErr = apiErr
	}
	in.message = bestMessage(in)

	for _, r := range rules {
		if classified, ok := r(in); ok {
			return classified
		}
	}
	return err
}

// bestMessage prefers the structured error's message over the raw one.
func bestMessage(in input) string {
	if in.apiErr != nil && in.apiErr.Message != "" {
		return in.apiErr.Message
	}
	if in.raw != nil {
		return in.raw.Error()
	}
	return ""
}

func classifyModelNotFound(in input) (error, bool) {
	if in.status != 404 {
		return nil, false
	}
	message := in.message
	if message == "" {
		message = "Requested model was not found."
	}
	return &ModelNotFoundError{Message: message, Status: in.status, Cause: in.apiErr}, true
}

func classifyValidationRequired(in input) (error, bool) {
	if in.status != 403 || in.apiErr == nil {
		return nil, false
	}

	var errorInfo *api.ErrorDetail
	for _, d := range in.apiErr.ErrorInfoDetails() {
		d := d
		if _, ok := providerDomains[d.Domain]; ok && d.Reason == reasonValidationRequired {
			errorInfo = &d
			break
		}
	}
	if errorInfo == nil {
		return nil, false
	}

	ve := &ValidationRequiredError{
		Message: in.message,
		Status:  in.status,
		Cause:   in.apiErr,
	}

	helps := in.apiErr.HelpDetails()
	if len(helps) > 0 {
		if links := helps[0].Links; len(links) > 0 {
			ve.ValidationLink = links[0].URL
			ve.ValidationDescription = links[0].Description
		}
		for _, h := range helps {
			for _, link := range h.Links {
				if isLearnMoreLink(link) {
					ve.LearnMoreURL = link.URL
				}
			}
		}
	} else if link := errorInfo.Metadata["validation_link"]; link != "" {
		ve.ValidationLink = link
	}

	return ve, true
}

func isLearnMoreLink(link api.HelpLink) bool {
	if strings.EqualFold(strings.TrimSpace(link.Description), "learn more") {
		return true
	}
	u, err := url.Parse(link.URL)
	if err != nil {
		return false
	}
	_, ok := supportHosts[u.Host]
	return ok
}

// classifyStructuredQuota handles a 429 that carries structured details,
// walking them from most to least specific.
func classifyStructuredQuota(in input) (error, bool) {
	if in.apiErr == nil || in.apiErr.Code != 429 || len(in.apiErr.Details) == 0 {
		return nil, false
	}

	// Daily limits win over everything else.
	for _, qf := range in.apiErr.QuotaFailureDetails() {
		for _, v := range qf.Violations {
			if strings.Contains(v.QuotaID, "PerDay") || strings.Contains(v.QuotaID, "Daily") {
				return &TerminalQuotaError{Message: "You have exhausted your daily quota on this model.", Cause: in.apiErr}, true
			}
		}
	}

	var retryDelay *time.Duration
	var rawRetryDelay string
	for _, ri := range in.apiErr.RetryInfoDetails() {
		if ri.RetryDelay == "" {
			continue
		}
		if d, ok := parseRetryDelay(ri.RetryDelay); ok {
			retryDelay = delayPtr(d)
			rawRetryDelay = ri.RetryDelay
			break
		}
	}

	for _, ei := range in.apiErr.ErrorInfoDetails() {
		if _, ok := providerDomains[ei.Domain]; !ok {
			continue
		}
		switch ei.Reason {
		case reasonRateLimitExceeded:
			delay := defaultRateLimitDelay
			if retryDelay != nil {
				delay = *retryDelay
			}
			return &RetryableQuotaError{Message: in.message, RetryDelay: delayPtr(delay), Cause: in.apiErr}, true
		case reasonQuotaExhausted:
			return &TerminalQuotaError{Message: in.message, RetryDelay: retryDelay, Cause: in.apiErr}, true
		}
	}

	if retryDelay != nil {
		message := fmt.Sprintf("%s Please retry after %s.", in.message, rawRetryDelay)
		return &RetryableQuotaError{Message: message, RetryDelay: retryDelay, Cause: in.apiErr}, true
	}

	for _, qf := range in.apiErr.QuotaFailureDetails() {
		for _, v := range qf.Violations {
			if strings.Contains(v.QuotaID, "PerMinute") {
				return &RetryableQuotaError{Message: in.message, RetryDelay: delayPtr(perMinuteDelay), Cause: in.apiErr}, true
			}
		}
	}

	for _, ei := range in.apiErr.ErrorInfoDetails() {
		if strings.Contains(ei.Metadata["quota_limit"], "PerMinute") {
			return &RetryableQuotaError{Message: in.message, RetryDelay: delayPtr(perMinuteDelay), Cause: in.apiErr}, true
		}
	}

	return &RetryableQuotaError{Message: in.message, Cause: in.apiErr}, true
}

var retryPhraseRe = regexp.MustCompile(`[Pp]lease retry in (\d+(?:\.\d+)?)(ms|s)\b`)

// classifyRetryPhrase is the last-resort parse of an unstructured "Please
// retry in <n><unit>" hint in the message.
func classifyRetryPhrase(in input) (error, bool) {
	m := retryPhraseRe.FindStringSubmatch(in.message)
	if m == nil {
		return nil, false
	}
	d, ok := parseRetryDelay(m[1] + m[2])
	if !ok {
		return nil, false
	}
	return &RetryableQuotaError{Message: in.message, RetryDelay: delayPtr(d), Cause: in.apiErr}, true
}

// classifyBareRateLimit catches a 429 with no usable details and no retry
// hint; the retry policy applies its default delay.
func classifyBareRateLimit(in input) (error, bool) {
	if in.status != 429 {
		return nil, false
	}
	return &RetryableQuotaError{Message: in.message, Cause: in.apiErr}, true
}

// parseRetryDelay parses provider duration strings, which only ever use the
// "ms" and "s" suffixes ("500ms", "34.07s"). Anything else is no hint.
func parseRetryDelay(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)

	var unit time.Duration
	var num string
	switch {
	case strings.HasSuffix(s, "ms"):
		unit = time.Millisecond
		num = strings.TrimSuffix(s, "ms")
	case strings.HasSuffix(s, "s"):
		unit = time.Second
		num = strings.TrimSuffix(s, "s")
	default:
		return 0, false
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(unit)), true
}

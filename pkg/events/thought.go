package events

import (
	"strings"

	"github.com/rs/zerolog"
)

// ThoughtSummary is a reasoning-summary fragment split into a subject and a
// description. Subject is empty when the raw text carried no delimited
// header.
type ThoughtSummary struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

func (t ThoughtSummary) MarshalZerologObject(ev *zerolog.Event) {
	if t.Subject != "" {
		ev.Str("subject", t.Subject)
	}
	ev.Str("description", t.Description)
}

var _ zerolog.LogObjectMarshaler = ThoughtSummary{}

// ParseThought extracts the subject from a raw thought fragment. The first
// **...** span is the subject; the surrounding text becomes the description.
// Later delimited spans stay inside the description untouched.
func ParseThought(raw string) ThoughtSummary {
	start := strings.Index(raw, "**")
	if start < 0 {
		return ThoughtSummary{Description: strings.TrimSpace(raw)}
	}
	rest := raw[start+2:]
	end := strings.Index(rest, "**")
	if end < 0 {
		return ThoughtSummary{Description: strings.TrimSpace(raw)}
	}
	subject := strings.TrimSpace(rest[:end])
	description := strings.TrimSpace(raw[:start] + rest[end+2:])
	return ThoughtSummary{Subject: subject, Description: description}
}

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseThought(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		subject     string
		description string
	}{
		{
			name:        "subject and description",
			raw:         "**Planning the edit** I should look at the file first.",
			subject:     "Planning the edit",
			description: "I should look at the file first.",
		},
		{
			name:        "no delimiter",
			raw:         "  just thinking out loud  ",
			subject:     "",
			description: "just thinking out loud",
		},
		{
			name:        "unmatched opening delimiter",
			raw:         "**half a header and some text",
			subject:     "",
			description: "**half a header and some text",
		},
		{
			name:        "text before and after subject",
			raw:         "prefix **Subject** suffix",
			subject:     "Subject",
			description: "prefix  suffix",
		},
		{
			name:        "only first span is the subject",
			raw:         "**First** body with **bold** inside",
			subject:     "First",
			description: "body with **bold** inside",
		},
		{
			name:        "empty input",
			raw:         "",
			subject:     "",
			description: "",
		},
		{
			name:        "whitespace inside delimiters is trimmed",
			raw:         "** Spaced Out ** rest",
			subject:     "Spaced Out",
			description: "rest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseThought(tt.raw)
			assert.Equal(t, tt.subject, got.Subject)
			assert.Equal(t, tt.description, got.Description)
		})
	}
}

package events

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Usage represents token usage reported by the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
	// ThoughtTokens counts tokens spent on reasoning summaries.
	ThoughtTokens int `json:"thought_tokens,omitempty" yaml:"thought_tokens,omitempty"`
	TotalTokens   int `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`
}

// EventMetadata is carried by every event for correlation with the turn
// that produced it.
type EventMetadata struct {
	ID uuid.UUID `json:"message_id" yaml:"message_id"`
	// PromptID is the opaque identifier the caller supplied for the turn.
	PromptID string `json:"prompt_id,omitempty" yaml:"prompt_id,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	// Extra carries provider-specific/context values
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.PromptID != "" {
		e.Str("prompt_id", em.PromptID)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if len(em.Extra) > 0 {
		e.Dict("extra", zerolog.Dict().Fields(em.Extra))
	}
}

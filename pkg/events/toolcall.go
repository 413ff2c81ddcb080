package events

import (
	"github.com/rs/zerolog"
)

// ToolCallRequest represents one model-issued request to invoke a named
// capability. CallID is unique within the turn; the engine synthesizes one
// when the provider omits it.
type ToolCallRequest struct {
	CallID string                 `json:"call_id"`
	Name   string                 `json:"name"`
	Args   map[string]interface{} `json:"args,omitempty"`
	// IsClientInitiated is always false for model-issued calls.
	IsClientInitiated bool   `json:"is_client_initiated"`
	PromptID          string `json:"prompt_id,omitempty"`
	// TraceID correlates the request to the chunk it originated from.
	TraceID string `json:"trace_id,omitempty"`
}

func (tc ToolCallRequest) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("call_id", tc.CallID).Str("name", tc.Name)
	if tc.Args != nil {
		ev.Interface("args", tc.Args)
	}
	if tc.PromptID != "" {
		ev.Str("prompt_id", tc.PromptID)
	}
	if tc.TraceID != "" {
		ev.Str("trace_id", tc.TraceID)
	}
}

var _ zerolog.LogObjectMarshaler = ToolCallRequest{}

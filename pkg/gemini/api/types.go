package api

import (
	"strings"

	"github.com/rs/zerolog"
)

// FinishReason is the provider-supplied cause for ending a response candidate.
type FinishReason string

const (
	FinishReasonUnspecified FinishReason = "FINISH_REASON_UNSPECIFIED"
	FinishReasonStop        FinishReason = "STOP"
	FinishReasonMaxTokens   FinishReason = "MAX_TOKENS"
	FinishReasonSafety      FinishReason = "SAFETY"
	FinishReasonRecitation  FinishReason = "RECITATION"
	FinishReasonOther       FinishReason = "OTHER"
)

// FunctionCall is a model-issued request to invoke a named capability.
// ID may be empty; the turn engine synthesizes one in that case.
type FunctionCall struct {
	ID   string                 `json:"id,omitempty"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

func (fc FunctionCall) MarshalZerologObject(e *zerolog.Event) {
	if fc.ID != "" {
		e.Str("id", fc.ID)
	}
	e.Str("name", fc.Name)
	if fc.Args != nil {
		e.Interface("args", fc.Args)
	}
}

// Part is one unit of candidate content. Thought marks reasoning-summary
// text that is surfaced separately from regular output text.
type Part struct {
	Text         string        `json:"text,omitempty"`
	Thought      bool          `json:"thought,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

type CitationSource struct {
	URI        string `json:"uri,omitempty"`
	Title      string `json:"title,omitempty"`
	StartIndex *int   `json:"startIndex,omitempty"`
	EndIndex   *int   `json:"endIndex,omitempty"`
}

type CitationMetadata struct {
	CitationSources []CitationSource `json:"citationSources,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

type Candidate struct {
	Content          *Content          `json:"content,omitempty"`
	FinishReason     FinishReason      `json:"finishReason,omitempty"`
	CitationMetadata *CitationMetadata `json:"citationMetadata,omitempty"`
}

// GenerateChunk is one incremental unit of the provider's streamed response.
type GenerateChunk struct {
	Candidates    []Candidate    `json:"candidates,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	// TraceID correlates the chunk to provider-side request tracing.
	TraceID string `json:"traceId,omitempty"`
}

// Parts returns the content parts of the first candidate, or nil.
func (c *GenerateChunk) Parts() []Part {
	if c == nil || len(c.Candidates) == 0 || c.Candidates[0].Content == nil {
		return nil
	}
	return c.Candidates[0].Content.Parts
}

// Text assembles the plain-text delta carried by the chunk, skipping
// thought parts and function calls.
func (c *GenerateChunk) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts() {
		if p.Thought || p.FunctionCall != nil {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// FunctionCalls collects every function-call entry in the chunk, in order.
func (c *GenerateChunk) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts() {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

// FinishReason returns the completion reason carried by the chunk, if any.
func (c *GenerateChunk) FinishReason() (FinishReason, bool) {
	if c == nil || len(c.Candidates) == 0 {
		return "", false
	}
	fr := c.Candidates[0].FinishReason
	if fr == "" || fr == FinishReasonUnspecified {
		return "", false
	}
	return fr, true
}

// CitationTexts returns the citation strings present in the chunk. A source
// with a title renders as "title - uri", otherwise the bare URI.
func (c *GenerateChunk) CitationTexts() []string {
	if c == nil || len(c.Candidates) == 0 || c.Candidates[0].CitationMetadata == nil {
		return nil
	}
	var out []string
	for _, src := range c.Candidates[0].CitationMetadata.CitationSources {
		switch {
		case src.Title != "" && src.URI != "":
			out = append(out, src.Title+" - "+src.URI)
		case src.URI != "":
			out = append(out, src.URI)
		case src.Title != "":
			out = append(out, src.Title)
		}
	}
	return out
}

func (c *GenerateChunk) MarshalZerologObject(e *zerolog.Event) {
	if c == nil {
		return
	}
	e.Int("num_candidates", len(c.Candidates))
	if fr, ok := c.FinishReason(); ok {
		e.Str("finish_reason", string(fr))
	}
	if c.TraceID != "" {
		e.Str("trace_id", c.TraceID)
	}
	if c.UsageMetadata != nil {
		e.Int("total_tokens", c.UsageMetadata.TotalTokenCount)
	}
}

var _ zerolog.LogObjectMarshaler = (*GenerateChunk)(nil)

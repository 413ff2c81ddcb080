package events

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeContent carries the assembled plain-text delta of one chunk.
	EventTypeContent EventType = "content"
	// EventTypeThought carries a parsed reasoning summary.
	EventTypeThought EventType = "thought"
	// EventTypeToolCallRequest is emitted once per function-call entry.
	EventTypeToolCallRequest EventType = "tool-call-request"
	// EventTypeCitation carries the accumulated citations, flushed once per
	// completion signal, immediately before the finished event.
	EventTypeCitation EventType = "citation"
	// EventTypeFinished is emitted for every chunk carrying a finish reason.
	EventTypeFinished EventType = "finished"
	// EventTypeRetry is a pass-through marker for a transport-level retry
	// that was already handled below the engine.
	EventTypeRetry EventType = "retry"

	// Agent-loop policy signals forwarded from the underlying stream.
	EventTypeExecutionStopped EventType = "execution-stopped"
	EventTypeExecutionBlocked EventType = "execution-blocked"

	// Terminal events.
	EventTypeUserCancelled EventType = "user-cancelled"
	EventTypeInvalidStream EventType = "invalid-stream"
	EventTypeError         EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON payload when the event was decoded off the bus (see NewEventFromJson)
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON payload on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

// EventContent is the assembled plain-text delta from one response chunk.
type EventContent struct {
	EventImpl
	Text    string `json:"text"`
	TraceID string `json:"trace_id,omitempty"`
}

func NewContentEvent(metadata EventMetadata, text string, traceID string) *EventContent {
	return &EventContent{
		EventImpl: EventImpl{Type_: EventTypeContent, Metadata_: metadata},
		Text:      text,
		TraceID:   traceID,
	}
}

var _ Event = &EventContent{}

func (e EventContent) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("text", e.Text)
	if e.TraceID != "" {
		ev.Str("trace_id", e.TraceID)
	}
}

// EventThought carries one parsed reasoning-summary fragment.
type EventThought struct {
	EventImpl
	Thought ThoughtSummary `json:"thought"`
	TraceID string         `json:"trace_id,omitempty"`
}

func NewThoughtEvent(metadata EventMetadata, thought ThoughtSummary, traceID string) *EventThought {
	return &EventThought{
		EventImpl: EventImpl{Type_: EventTypeThought, Metadata_: metadata},
		Thought:   thought,
		TraceID:   traceID,
	}
}

var _ Event = &EventThought{}

func (e EventThought) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Object("thought", e.Thought)
}

// EventToolCallRequest is emitted for every function-call entry the model
// issues; the same request is appended to the turn's pending list.
type EventToolCallRequest struct {
	EventImpl
	ToolCallRequest ToolCallRequest `json:"tool_call_request"`
}

func NewToolCallRequestEvent(metadata EventMetadata, req ToolCallRequest) *EventToolCallRequest {
	return &EventToolCallRequest{
		EventImpl:       EventImpl{Type_: EventTypeToolCallRequest, Metadata_: metadata},
		ToolCallRequest: req,
	}
}

var _ Event = &EventToolCallRequest{}

func (e EventToolCallRequest) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Object("tool_call_request", e.ToolCallRequest)
}

// EventCitation carries the turn's accumulated citations, sorted and
// newline-joined.
type EventCitation struct {
	EventImpl
	Text string `json:"text"`
}

func NewCitationEvent(metadata EventMetadata, text string) *EventCitation {
	return &EventCitation{
		EventImpl: EventImpl{Type_: EventTypeCitation, Metadata_: metadata},
		Text:      text,
	}
}

var _ Event = &EventCitation{}

func (e EventCitation) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("text", e.Text)
}

// EventFinished is emitted when a chunk carries a completion reason. A
// malformed stream can carry several; each occurrence yields its own event.
type EventFinished struct {
	EventImpl
	Reason string `json:"reason"`
	Usage  *Usage `json:"usage,omitempty"`
}

func NewFinishedEvent(metadata EventMetadata, reason string, usage *Usage) *EventFinished {
	return &EventFinished{
		EventImpl: EventImpl{Type_: EventTypeFinished, Metadata_: metadata},
		Reason:    reason,
		Usage:     usage,
	}
}

var _ Event = &EventFinished{}

func (e EventFinished) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("reason", e.Reason)
	if e.Usage != nil {
		ev.Int("input_tokens", e.Usage.InputTokens)
		ev.Int("output_tokens", e.Usage.OutputTokens)
	}
}

// EventRetry has no payload; the transport already handled the retry.
type EventRetry struct {
	EventImpl
}

func NewRetryEvent(metadata EventMetadata) *EventRetry {
	return &EventRetry{EventImpl: EventImpl{Type_: EventTypeRetry, Metadata_: metadata}}
}

var _ Event = &EventRetry{}

// EventExecutionStopped terminates the turn.
type EventExecutionStopped struct {
	EventImpl
	Reason string `json:"reason,omitempty"`
}

func NewExecutionStoppedEvent(metadata EventMetadata, reason string) *EventExecutionStopped {
	return &EventExecutionStopped{
		EventImpl: EventImpl{Type_: EventTypeExecutionStopped, Metadata_: metadata},
		Reason:    reason,
	}
}

var _ Event = &EventExecutionStopped{}

// EventExecutionBlocked does not terminate the turn.
type EventExecutionBlocked struct {
	EventImpl
	Reason string `json:"reason,omitempty"`
}

func NewExecutionBlockedEvent(metadata EventMetadata, reason string) *EventExecutionBlocked {
	return &EventExecutionBlocked{
		EventImpl: EventImpl{Type_: EventTypeExecutionBlocked, Metadata_: metadata},
		Reason:    reason,
	}
}

var _ Event = &EventExecutionBlocked{}

// EventUserCancelled is emitted exactly once when cancellation is observed;
// no further events follow it.
type EventUserCancelled struct {
	EventImpl
}

func NewUserCancelledEvent(metadata EventMetadata) *EventUserCancelled {
	return &EventUserCancelled{EventImpl: EventImpl{Type_: EventTypeUserCancelled, Metadata_: metadata}}
}

var _ Event = &EventUserCancelled{}

// EventInvalidStream is emitted when the stream carried structurally invalid
// data; it terminates the turn.
type EventInvalidStream struct {
	EventImpl
	Message string `json:"message,omitempty"`
}

func NewInvalidStreamEvent(metadata EventMetadata, message string) *EventInvalidStream {
	return &EventInvalidStream{
		EventImpl: EventImpl{Type_: EventTypeInvalidStream, Metadata_: metadata},
		Message:   message,
	}
}

var _ Event = &EventInvalidStream{}

// StructuredError is the normalized shape of an unrecovered failure.
type StructuredError struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (s StructuredError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("message", s.Message)
	if s.Status != 0 {
		ev.Int("status", s.Status)
	}
}

// EventError terminates the turn after the failure has been reported.
type EventError struct {
	EventImpl
	Err StructuredError `json:"error"`
}

func NewErrorEvent(metadata EventMetadata, err StructuredError) *EventError {
	return &EventError{
		EventImpl: EventImpl{Type_: EventTypeError, Metadata_: metadata},
		Err:       err,
	}
}

var _ Event = &EventError{}

func (e EventError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Object("error", e.Err)
}

func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeContent:
		return castEvent[EventContent](e)
	case EventTypeThought:
		return castEvent[EventThought](e)
	case EventTypeToolCallRequest:
		return castEvent[EventToolCallRequest](e)
	case EventTypeCitation:
		return castEvent[EventCitation](e)
	case EventTypeFinished:
		return castEvent[EventFinished](e)
	case EventTypeRetry:
		return castEvent[EventRetry](e)
	case EventTypeExecutionStopped:
		return castEvent[EventExecutionStopped](e)
	case EventTypeExecutionBlocked:
		return castEvent[EventExecutionBlocked](e)
	case EventTypeUserCancelled:
		return castEvent[EventUserCancelled](e)
	case EventTypeInvalidStream:
		return castEvent[EventInvalidStream](e)
	case EventTypeError:
		return castEvent[EventError](e)
	}

	return e, nil
}

func castEvent[T any](e Event) (*T, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok {
		return nil, fmt.Errorf("could not cast event of type %s", e.Type())
	}
	return ret, nil
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}

	return ret, true
}

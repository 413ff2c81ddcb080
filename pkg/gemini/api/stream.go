package api

import (
	"github.com/rs/zerolog"
)

// StreamItemType discriminates the items a chat session stream can carry.
type StreamItemType string

const (
	// StreamItemChunk is a normal response chunk.
	StreamItemChunk StreamItemType = "chunk"
	// StreamItemRetry signals a transient failure the transport already
	// handled; the engine passes it through and keeps reading.
	StreamItemRetry StreamItemType = "retry"
	// StreamItemExecutionStopped signals the agent loop was halted by policy.
	StreamItemExecutionStopped StreamItemType = "execution_stopped"
	// StreamItemExecutionBlocked signals the agent loop was blocked by policy
	// without terminating the stream.
	StreamItemExecutionBlocked StreamItemType = "execution_blocked"
	// StreamItemError carries a failure reading the stream; it is always the
	// last item a session delivers.
	StreamItemError StreamItemType = "error"
)

// StreamItem is one item read off a chat session stream: either a response
// chunk or one of the transport-level signals.
type StreamItem struct {
	Type  StreamItemType `json:"type"`
	Chunk *GenerateChunk `json:"chunk,omitempty"`
	// Reason accompanies execution_stopped and execution_blocked items.
	Reason string `json:"reason,omitempty"`
	// Err accompanies error items. ErrorMessage mirrors it for recorded
	// streams, where the original error value is not available.
	Err          error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

func NewChunkItem(chunk *GenerateChunk) StreamItem {
	return StreamItem{Type: StreamItemChunk, Chunk: chunk}
}

func NewRetryItem() StreamItem {
	return StreamItem{Type: StreamItemRetry}
}

func NewExecutionStoppedItem(reason string) StreamItem {
	return StreamItem{Type: StreamItemExecutionStopped, Reason: reason}
}

func NewExecutionBlockedItem(reason string) StreamItem {
	return StreamItem{Type: StreamItemExecutionBlocked, Reason: reason}
}

func NewErrorItem(err error) StreamItem {
	item := StreamItem{Type: StreamItemError, Err: err}
	if err != nil {
		item.ErrorMessage = err.Error()
	}
	return item
}

func (s StreamItem) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", string(s.Type))
	if s.Chunk != nil {
		e.Object("chunk", s.Chunk)
	}
	if s.Reason != "" {
		e.Str("reason", s.Reason)
	}
	if s.Err != nil {
		e.Err(s.Err)
	}
}

var _ zerolog.LogObjectMarshaler = StreamItem{}

package turns

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lampwick/pkg/chat"
	"github.com/go-go-golems/lampwick/pkg/events"
	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

// ErrTurnConsumed is returned from Err when Run is called on a turn that
// already produced its event sequence.
var ErrTurnConsumed = errors.New("turn has already been run")

// Turn drives one exchange with the model: it consumes the session's
// response stream and translates it into typed events, while keeping the
// per-exchange bookkeeping (pending tool calls, citations, completion
// reason). A Turn is single-use.
type Turn struct {
	session  chat.Session
	reporter chat.ErrorReporter
	promptID string
	sinks    []events.EventSink

	mu               sync.Mutex
	ran              bool
	err              error
	pendingToolCalls []events.ToolCallRequest
	pendingCitations map[string]struct{}
	finishReason     api.FinishReason
	finished         bool
	callCounter      int
	debugResponses   []*api.GenerateChunk
}

type Option func(*Turn)

// WithReporter sets the collaborator that receives unrecovered failures
// together with the conversation that produced them.
func WithReporter(r chat.ErrorReporter) Option {
	return func(t *Turn) {
		t.reporter = r
	}
}

// WithEventSinks registers sinks that receive a copy of every event the
// turn yields, in addition to the channel returned by Run.
func WithEventSinks(sinks ...events.EventSink) Option {
	return func(t *Turn) {
		t.sinks = append(t.sinks, sinks...)
	}
}

func NewTurn(session chat.Session, promptID string, opts ...Option) *Turn {
	t := &Turn{
		session:          session,
		reporter:         chat.NewLogReporter(),
		promptID:         promptID,
		pendingCitations: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run sends the request through the session and returns the turn's event
// sequence. The channel is unbuffered, so production is paced by the
// consumer; it is closed when the turn terminates. The caller must keep
// draining the channel until it closes, even after cancelling ctx:
// cancellation is acknowledged with a final user-cancelled event, not by
// abandoning the channel. A turn cannot be run twice: the second call
// returns an already-closed channel and Err reports ErrTurnConsumed.
//
// Cancellation and invalid stream data surface as events. An authorization
// failure does not: the sequence ends without an error event and Err
// returns the failure, so the caller can trigger re-authentication instead
// of displaying it.
func (t *Turn) Run(ctx context.Context, req chat.SendMessageRequest) <-chan events.Event {
	out := make(chan events.Event)

	t.mu.Lock()
	if t.ran {
		t.err = ErrTurnConsumed
		t.mu.Unlock()
		close(out)
		return out
	}
	t.ran = true
	t.mu.Unlock()

	go func() {
		defer close(out)
		t.run(ctx, req, out)
	}()

	return out
}

func (t *Turn) run(ctx context.Context, req chat.SendMessageRequest, out chan<- events.Event) {
	if req.PromptID == "" {
		req.PromptID = t.promptID
	}
	metadata := events.EventMetadata{
		ID:       uuid.New(),
		PromptID: req.PromptID,
		Model:    req.Model,
	}

	log.Debug().Object("metadata", metadata).Msg("Starting turn")

	stream, err := t.session.SendMessageStream(ctx, req)
	if err != nil {
		t.fail(ctx, req, metadata, out, err)
		return
	}

	for item := range stream {
		if ctx.Err() != nil {
			t.emit(ctx, out, events.NewUserCancelledEvent(metadata))
			return
		}

		switch item.Type {
		case api.StreamItemRetry:
			t.emit(ctx, out, events.NewRetryEvent(metadata))

		case api.StreamItemExecutionStopped:
			t.emit(ctx, out, events.NewExecutionStoppedEvent(metadata, item.Reason))
			return

		case api.StreamItemExecutionBlocked:
			t.emit(ctx, out, events.NewExecutionBlockedEvent(metadata, item.Reason))

		case api.StreamItemError:
			err := item.Err
			if err == nil {
				err = errors.New(item.ErrorMessage)
			}
			t.fail(ctx, req, metadata, out, err)
			return

		case api.StreamItemChunk:
			if item.Chunk == nil {
				continue
			}
			t.processChunk(ctx, out, metadata, item.Chunk)
		}
	}

	// the stream can also end early because the session observed
	// cancellation and closed its channel
	if ctx.Err() != nil {
		t.emit(ctx, out, events.NewUserCancelledEvent(metadata))
	}
}

// processChunk translates one response chunk into events. Within a chunk
// the yield order is fixed: thoughts, then content, then tool-call
// requests, then (on a completion reason) citations and finished.
func (t *Turn) processChunk(ctx context.Context, out chan<- events.Event, metadata events.EventMetadata, chunk *api.GenerateChunk) {
	t.mu.Lock()
	t.debugResponses = append(t.debugResponses, chunk)
	t.mu.Unlock()

	for _, part := range chunk.Parts() {
		if !part.Thought {
			continue
		}
		thought := events.ParseThought(part.Text)
		t.emit(ctx, out, events.NewThoughtEvent(metadata, thought, chunk.TraceID))
	}

	if text := chunk.Text(); text != "" {
		t.emit(ctx, out, events.NewContentEvent(metadata, text, chunk.TraceID))
	}

	for _, fc := range chunk.FunctionCalls() {
		req := t.newToolCallRequest(fc, metadata.PromptID, chunk.TraceID)

		t.mu.Lock()
		t.pendingToolCalls = append(t.pendingToolCalls, req)
		t.mu.Unlock()

		t.emit(ctx, out, events.NewToolCallRequestEvent(metadata, req))
	}

	t.mu.Lock()
	for _, citation := range chunk.CitationTexts() {
		t.pendingCitations[citation] = struct{}{}
	}
	t.mu.Unlock()

	if reason, ok := chunk.FinishReason(); ok {
		if citations := t.flushCitations(); citations != "" {
			t.emit(ctx, out, events.NewCitationEvent(metadata, citations))
		}

		t.mu.Lock()
		t.finishReason = reason
		t.finished = true
		t.mu.Unlock()

		var usage *events.Usage
		if um := chunk.UsageMetadata; um != nil {
			usage = &events.Usage{
				InputTokens:   um.PromptTokenCount,
				OutputTokens:  um.CandidatesTokenCount,
				ThoughtTokens: um.ThoughtsTokenCount,
				TotalTokens:   um.TotalTokenCount,
			}
		}
		t.emit(ctx, out, events.NewFinishedEvent(metadata, string(reason), usage))
	}
}

// newToolCallRequest builds the pending request for one function call,
// synthesizing a call id unique within the turn when the provider omitted
// one.
func (t *Turn) newToolCallRequest(fc api.FunctionCall, promptID string, traceID string) events.ToolCallRequest {
	callID := fc.ID
	name := fc.Name
	if name == "" {
		name = "undefined_tool_name"
	}
	if callID == "" {
		t.mu.Lock()
		callID = fmt.Sprintf("%s_%d_%d", name, time.Now().UnixMilli(), t.callCounter)
		t.callCounter++
		t.mu.Unlock()
	}
	return events.ToolCallRequest{
		CallID:            callID,
		Name:              name,
		Args:              fc.Args,
		IsClientInitiated: false,
		PromptID:          promptID,
		TraceID:           traceID,
	}
}

// flushCitations drains the pending citation set, returning its contents
// sorted and newline-joined, or "" when empty.
func (t *Turn) flushCitations() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pendingCitations) == 0 {
		return ""
	}
	citations := make([]string, 0, len(t.pendingCitations))
	for c := range t.pendingCitations {
		citations = append(citations, c)
	}
	t.pendingCitations = map[string]struct{}{}
	sort.Strings(citations)
	return strings.Join(citations, "\n")
}

// fail turns an unrecovered stream failure into the turn's terminal event.
// Cancellation yields user-cancelled, structurally invalid stream data
// yields invalid-stream, and authorization failures are held on the turn
// for Err instead of being yielded. Everything else is reported and
// yielded as an error event.
func (t *Turn) fail(ctx context.Context, req chat.SendMessageRequest, metadata events.EventMetadata, out chan<- events.Event, err error) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		t.emit(ctx, out, events.NewUserCancelledEvent(metadata))
		return
	}

	if errors.Is(err, api.ErrInvalidStreamData) {
		t.emit(ctx, out, events.NewInvalidStreamEvent(metadata, err.Error()))
		return
	}

	if api.IsUnauthorized(err) {
		log.Warn().Err(err).Str("prompt_id", req.PromptID).Msg("Turn failed with authorization error")
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		return
	}

	structured := events.StructuredError{
		Message: err.Error(),
		Status:  api.StatusCode(err),
	}
	if apiErr, ok := api.ParseAPIError(err); ok {
		structured.Message = apiErr.Message
		if apiErr.Code != 0 {
			structured.Status = apiErr.Code
		}
		t.session.MaybeIncludeSchemaDepthContext(apiErr)
	}

	history := append(t.session.History(false), api.Content{Role: "user", Parts: req.Content})
	if reportErr := t.reporter.Report(ctx, err, "Turn failed during stream consumption", history, "Turn.run"); reportErr != nil {
		log.Error().Err(reportErr).Msg("Failed to report turn failure")
	}

	t.emit(ctx, out, events.NewErrorEvent(metadata, structured))
}

// emit delivers one event to every registered sink (including sinks
// attached to the context) and then to the consumer. The send blocks:
// Run's contract is that the caller drains the channel until it closes,
// which is what lets a cancelled turn still deliver its terminal event.
func (t *Turn) emit(ctx context.Context, out chan<- events.Event, e events.Event) {
	for _, sink := range t.sinks {
		if err := sink.PublishEvent(e); err != nil {
			log.Error().Err(err).Str("event_type", string(e.Type())).Msg("Failed to publish event to sink")
		}
	}
	events.PublishEventToContext(ctx, e)

	out <- e
}

// PendingToolCalls returns the tool-call requests issued so far, in the
// order the model emitted them.
func (t *Turn) PendingToolCalls() []events.ToolCallRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]events.ToolCallRequest, len(t.pendingToolCalls))
	copy(out, t.pendingToolCalls)
	return out
}

// FinishReason returns the most recent completion reason, if one arrived.
func (t *Turn) FinishReason() (api.FinishReason, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finishReason, t.finished
}

// DebugResponses returns every raw chunk seen so far, for diagnostics.
func (t *Turn) DebugResponses() []*api.GenerateChunk {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*api.GenerateChunk, len(t.debugResponses))
	copy(out, t.debugResponses)
	return out
}

// ResponseText joins the extracted text of every chunk seen so far with
// single spaces, skipping chunks that carried no text.
func (t *Turn) ResponseText() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var texts []string
	for _, chunk := range t.debugResponses {
		if text := chunk.Text(); text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, " ")
}

// Err returns the failure Run held back instead of yielding, or
// ErrTurnConsumed after an attempted re-run. Check it after the event
// channel closes.
func (t *Turn) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

package chat

import (
	"context"

	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

// SendMessageRequest is the new content for one exchange with the model.
type SendMessageRequest struct {
	Model    string
	Content  []api.Part
	PromptID string
	// DisplayContent, when set, is what the surrounding UI shows instead of
	// Content (e.g. a slash command's expansion).
	DisplayContent string
}

// Session is the chat object that performs the actual network call and owns
// conversation history. The turn engine only consumes its stream.
type Session interface {
	// SendMessageStream sends the request and returns the stream of items
	// for the model's response. The channel is closed when the response is
	// complete; a read failure is delivered as a final error item.
	SendMessageStream(ctx context.Context, req SendMessageRequest) (<-chan api.StreamItem, error)

	// History returns the conversation so far. When curated is true, invalid
	// or empty model turns are filtered out.
	History(curated bool) []api.Content

	// MaybeIncludeSchemaDepthContext gives the session a chance to attach
	// extra context for schema-depth-related failures before they are
	// surfaced. Best effort; implementations may ignore it.
	MaybeIncludeSchemaDepthContext(apiErr *api.APIError)
}

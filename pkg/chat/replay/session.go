package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lampwick/pkg/chat"
	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

// Session replays a recorded response stream, one JSON stream item per
// line. It implements chat.Session for the CLI and for tests; the recording
// side lives in the surrounding system's session store.
type Session struct {
	items   []api.StreamItem
	history []api.Content
}

// Load reads a recorded stream from r. Blank lines and lines starting with
// '#' are skipped.
func Load(r io.Reader) (*Session, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var items []api.StreamItem
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var item api.StreamItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, errors.Wrapf(err, "invalid stream item on line %d", lineNo)
		}
		if item.Type == api.StreamItemError && item.Err == nil && item.ErrorMessage != "" {
			item.Err = errors.New(item.ErrorMessage)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read recorded stream")
	}

	return &Session{items: items}, nil
}

// LoadFile reads a recorded stream from path.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open recorded stream %s", path)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}

func (s *Session) SendMessageStream(ctx context.Context, req chat.SendMessageRequest) (<-chan api.StreamItem, error) {
	s.history = append(s.history, api.Content{Role: "user", Parts: req.Content})

	out := make(chan api.StreamItem)
	go func() {
		defer close(out)
		for _, item := range s.items {
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Debug().Int("num_items", len(s.items)).Str("prompt_id", req.PromptID).Msg("Replaying recorded stream")
	return out, nil
}

func (s *Session) History(curated bool) []api.Content {
	if !curated {
		return s.history
	}
	out := make([]api.Content, 0, len(s.history))
	for _, c := range s.history {
		if len(c.Parts) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Session) MaybeIncludeSchemaDepthContext(apiErr *api.APIError) {
	// replayed sessions carry no request schema to enrich from
}

var _ chat.Session = (*Session)(nil)

package chat

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lampwick/pkg/gemini/api"
)

// ErrorReporter collects unrecovered turn failures together with the
// conversation context that produced them.
type ErrorReporter interface {
	Report(ctx context.Context, reportErr error, contextLabel string, history []api.Content, site string) error
}

// LogReporter logs reported failures through zerolog. It is the default
// reporter when no diagnostics backend is configured.
type LogReporter struct{}

func NewLogReporter() *LogReporter {
	return &LogReporter{}
}

func (r *LogReporter) Report(ctx context.Context, reportErr error, contextLabel string, history []api.Content, site string) error {
	log.Error().
		Err(reportErr).
		Str("context", contextLabel).
		Str("site", site).
		Int("history_len", len(history)).
		Msg("Reporting turn failure")
	return nil
}

var _ ErrorReporter = (*LogReporter)(nil)

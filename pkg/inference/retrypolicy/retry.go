package retrypolicy

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/go-go-golems/lampwick/pkg/classify"
)

// Policy decides whether and when a failed exchange is attempted again. It
// classifies each failure and retries only on retryable quota errors,
// honoring the provider's suggested delay when one was attached.
type Policy struct {
	// MaxRetries bounds the retries after the first attempt.
	MaxRetries uint64
	// DefaultDelay applies when a retryable failure carries no delay hint.
	DefaultDelay time.Duration
	// MaxDelay caps provider-suggested delays.
	MaxDelay time.Duration
}

func NewPolicy() Policy {
	return Policy{
		MaxRetries:   4,
		DefaultDelay: 5 * time.Second,
		MaxDelay:     2 * time.Minute,
	}
}

// Execute runs fn, retrying it with classified-error-aware delays. Terminal
// classifications (model not found, validation required, daily quota) stop
// immediately and are returned in classified form.
func (p Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	hint := &hintedBackoff{def: p.DefaultDelay, max: p.MaxDelay}
	backoff := retry.WithMaxRetries(p.MaxRetries, hint)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}

		classified := classify.Classify(err)

		var quotaErr *classify.RetryableQuotaError
		if errors.As(classified, &quotaErr) {
			hint.set(quotaErr.RetryDelay)
			log.Debug().
				Err(classified).
				Int("attempt", attempt).
				Msg("Retrying after retryable quota error")
			return retry.RetryableError(classified)
		}

		return classified
	})
}

// hintedBackoff waits for the most recent provider-suggested delay, falling
// back to a fixed default. Each hint is consumed once.
type hintedBackoff struct {
	def time.Duration
	max time.Duration

	mu   sync.Mutex
	next *time.Duration
}

func (b *hintedBackoff) Next() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.def
	if b.next != nil {
		d = *b.next
		b.next = nil
	}
	if b.max > 0 && d > b.max {
		d = b.max
	}
	return d, false
}

func (b *hintedBackoff) set(d *time.Duration) {
	if d == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v := *d
	b.next = &v
}

var _ retry.Backoff = (*hintedBackoff)(nil)

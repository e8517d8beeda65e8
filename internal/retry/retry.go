// Package retry provides the retry-with-backoff policy shared by the
// embedding and generation gateways. Both gateways talk to rate-limited
// external model APIs and use the same schedule: a bounded number of
// attempts with exponentially growing waits between them (1s, 2s, 4s, ...).
// The policy is built on [github.com/cenkalti/backoff/v4].
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts is the total number of attempts made per call when the
// policy does not specify one.
const DefaultMaxAttempts = 3

// Policy describes a bounded exponential-backoff retry schedule.
// The zero value retries DefaultMaxAttempts times starting at one second.
type Policy struct {
	// MaxAttempts is the total number of attempts (first try included).
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; each subsequent
	// wait doubles. Defaults to one second.
	BaseDelay time.Duration
}

// Permanent marks err as non-retryable: Do returns it immediately without
// consuming further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx is
// cancelled. Failed attempts are logged at WARN with the wait before the
// next one. The returned error is fn's last error.
func (p Policy) Do(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = base << uint(attempts)
	b.MaxElapsedTime = 0

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		if log != nil {
			log.Warn("retrying after failure",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		}
	}

	return backoff.RetryNotify(fn,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx),
		notify,
	)
}

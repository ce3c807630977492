package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/resolver"
	"github.com/desertthunder/spotfetch/internal/shared"
)

// Attempt performs one localization attempt with the given request headers.
type Attempt func(ctx context.Context, headers map[string]string) (*resolver.Download, error)

// RetryOpts contains configuration for a [Retrier].
type RetryOpts struct {
	MaxAttempts int           // default 3
	BackoffMin  time.Duration // default 2s
	BackoffMax  time.Duration // default 5s
	Headers     resolver.HeaderSource
	Jitter      *resolver.Jitter
	Logger      *log.Logger
}

// Retrier runs an [Attempt] up to MaxAttempts times with a jittered pause before every retry.
//
// Each attempt gets freshly generated headers. Only errors for which [resolver.Recoverable]
// is true lead to another attempt.
type Retrier struct {
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
	headers     resolver.HeaderSource
	jitter      *resolver.Jitter
	logger      *log.Logger
}

// NewRetrier creates a Retrier, filling zero-valued options with defaults.
func NewRetrier(opts RetryOpts) *Retrier {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffMin == 0 && opts.BackoffMax == 0 {
		opts.BackoffMin, opts.BackoffMax = 2*time.Second, 5*time.Second
	}
	if opts.Headers == nil {
		opts.Headers = resolver.NewHeaderRandomizer(nil)
	}
	if opts.Jitter == nil {
		opts.Jitter = resolver.NewJitter(nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Retrier{
		maxAttempts: opts.MaxAttempts,
		backoffMin:  opts.BackoffMin,
		backoffMax:  opts.BackoffMax,
		headers:     opts.Headers,
		jitter:      opts.Jitter,
		logger:      opts.Logger,
	}
}

// MaxAttempts returns the attempt bound.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// Do runs fn until it succeeds, fails with a fatal error, or the attempt bound is reached.
//
// The returned error wraps [shared.ErrDownloadFailed] and the error of the last attempt.
func (r *Retrier) Do(ctx context.Context, fn Attempt) (*resolver.Download, error) {
	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			delay, err := r.jitter.Pause(ctx, r.backoffMin, r.backoffMax)
			if err != nil {
				return nil, fmt.Errorf("%w: cancelled before attempt %d: %w", shared.ErrDownloadFailed, attempt, err)
			}
			r.logger.Debug("retrying download", "attempt", attempt, "after", delay)
		}

		dl, err := fn(ctx, r.headers.Headers())
		if err == nil {
			return dl, nil
		}

		if attempt >= r.maxAttempts {
			return nil, fmt.Errorf("%w: all %d download attempts failed: %w", shared.ErrDownloadFailed, r.maxAttempts, err)
		}

		if !resolver.Recoverable(err) {
			return nil, fmt.Errorf("%w: attempt %d: %w", shared.ErrDownloadFailed, attempt, err)
		}

		r.logger.Warn("download attempt failed", "attempt", attempt, "max", r.maxAttempts, "error", err)
	}
}

package resolver

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default [Sleeper] backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jitter draws uniform random delays and sleeps for them.
type Jitter struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep Sleeper
}

// NewJitter returns a Jitter using rng and sleep; nil arguments fall back to a runtime-seeded source and [Sleep].
func NewJitter(rng *rand.Rand, sleep Sleeper) *Jitter {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Jitter{rng: rng, sleep: sleep}
}

// Between returns a duration drawn uniformly from [lo, hi].
func (j *Jitter) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return lo + time.Duration(j.rng.Int64N(int64(hi-lo)+1))
}

// Pause sleeps for a duration drawn from [lo, hi] and returns it.
func (j *Jitter) Pause(ctx context.Context, lo, hi time.Duration) (time.Duration, error) {
	d := j.Between(lo, hi)
	return d, j.sleep(ctx, d)
}

package nvapi

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds retries for transient failures (rate limits, server
// errors, network errors before the first delta).
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // cap on the computed delay
	Multiplier  float64       // backoff growth per attempt
	Jitter      float64       // fraction of the delay randomized, 0..1
}

// DefaultRetryPolicy mirrors the provider-recommended settings:
// three attempts, one second base delay, doubling per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// Delay returns the backoff before retry attempt n (1-based count of
// completed attempts). A provider-supplied hint overrides the computed
// exponential delay.
func (p RetryPolicy) Delay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return hint
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	return d
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
// The timer is released either way; no retry timer outlives cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

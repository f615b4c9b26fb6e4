// internal/pkg/mq/retry.go
package mq

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds the retry loop every saga handler runs its business
// action inside. Waits are exponential with full jitter and honor the
// context, so a shutting-down consumer is not stuck sleeping.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = 100 * time.Millisecond
	}
	if p.MaxBackoff < p.BaseBackoff {
		p.MaxBackoff = p.BaseBackoff
	}
	return p
}

// Retry runs op up to MaxAttempts times. retryable classifies errors:
// business outcomes (insufficient stock, missing reservation) must return
// false so they propagate immediately instead of being retried blindly.
// onRetry, if non-nil, is invoked before each wait.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error, retryable func(error) bool, onRetry func(attempt int, err error)) error {
	policy = policy.normalized()

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if werr := wait(ctx, backoffFor(policy, attempt)); werr != nil {
			return werr
		}
	}
	return err
}

// backoffFor returns a full-jitter delay for the given attempt number.
func backoffFor(policy RetryPolicy, attempt int) time.Duration {
	d := policy.BaseBackoff << (attempt - 1)
	if d > policy.MaxBackoff || d <= 0 {
		d = policy.MaxBackoff
	}
	return time.Duration(rand.Int63n(int64(d)) + 1)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

// RetryPolicy retries rate limited calls with exponential backoff.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries up to 3 times after 2s, 4s and 8s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, InitialDelay: 2 * time.Second}
}

// Do runs fn. Only errors matching domain.ErrRateLimited are retried; anything else
// is returned as is. When retries run out the last error is returned wrapped in
// domain.ErrGenerationFailed.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	delay := p.InitialDelay

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		if attempt >= p.MaxRetries {
			return fmt.Errorf("%w: retries exhausted after %d attempts: %w", domain.ErrGenerationFailed, attempt+1, err)
		}

		logger.With(logger.Fields{
			logger.FieldAttempt: attempt + 1,
			"delay_ms":          delay.Milliseconds(),
		}).Warn(ctx, "Rate limited, retrying: %v", err)

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

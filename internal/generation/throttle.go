package generation

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// ImageThrottler spaces out image generation calls with a token bucket holding a
// single token. One throttler is shared by every image batch in the process.
type ImageThrottler struct {
	limiter *rate.Limiter
}

// NewImageThrottler allows one call per interval. A non-positive interval disables
// throttling.
func NewImageThrottler(interval time.Duration) *ImageThrottler {
	if interval <= 0 {
		return &ImageThrottler{}
	}
	return &ImageThrottler{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call may start or ctx is done.
func (t *ImageThrottler) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}

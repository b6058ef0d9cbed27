package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter blocks until a request may proceed. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimited waits on every limiter before each call to the wrapped
// Embedder.
type RateLimited struct {
	next     Embedder
	limiters []Limiter
}

// NewRateLimited wraps next. Nil limiters are ignored.
func NewRateLimited(next Embedder, limiters ...Limiter) *RateLimited {
	r := &RateLimited{next: next}
	for _, l := range limiters {
		if l != nil {
			r.limiters = append(r.limiters, l)
		}
	}
	return r
}

// NewLocalLimiter allows rps requests per second with a burst of one second's
// worth. rps <= 0 returns nil, meaning unlimited.
func NewLocalLimiter(rps float64) Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

func (r *RateLimited) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	for _, l := range r.limiters {
		if err := l.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return r.next.Embed(ctx, text, purpose)
}

func (r *RateLimited) Model() string   { return r.next.Model() }
func (r *RateLimited) Dimensions() int { return r.next.Dimensions() }

package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"docsmith/internal/apperr"
)

const (
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultMaxRetries   = 3
)

// Policy configures Execute. The zero value uses the defaults above.
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
	// Name identifies the operation in logs.
	Name   string
	Logger *zap.Logger
}

// DefaultPolicy returns the policy used by generation and review.
func DefaultPolicy(name string, logger *zap.Logger) Policy {
	return Policy{
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		MaxRetries:   DefaultMaxRetries,
		Name:         name,
		Logger:       logger,
	}
}

func (p Policy) normalized() Policy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return p
}

// Delay returns min(InitialDelay * 2^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	d := p.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// Execute runs op up to MaxRetries+1 times. Non-retriable errors are returned
// at once; after the last attempt the last error is returned unchanged, so
// its classification survives. Waits between attempts end early when ctx is
// cancelled, in which case ctx.Err() is returned.
func Execute[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.normalized()
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if !apperr.IsRetriable(err) {
			policy.Logger.Warn("operation failed with non-retriable error",
				zap.String("op", policy.Name),
				zap.Int("attempt", attempt+1),
				zap.String("kind", string(apperr.KindOf(err))),
				zap.Error(err))
			return zero, err
		}
		if attempt >= policy.MaxRetries {
			policy.Logger.Error("operation failed after retries",
				zap.String("op", policy.Name),
				zap.Int("attempts", attempt+1),
				zap.String("kind", string(apperr.KindOf(err))),
				zap.Error(err))
			return zero, err
		}

		delay := policy.Delay(attempt)
		policy.Logger.Info("retrying operation",
			zap.String("op", policy.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

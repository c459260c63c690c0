package aiclient

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// WithRetry retries transient provider failures with exponential
// backoff starting at baseDelay. Permanent errors and context
// cancellation stop the loop immediately.
func WithRetry(next domain.AIClient, maxAttempts int, baseDelay time.Duration, log *zap.SugaredLogger) domain.AIClient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &retrying{next: next, max: maxAttempts, base: baseDelay, log: log}
}

type retrying struct {
	next domain.AIClient
	max  int
	base time.Duration
	log  *zap.SugaredLogger
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Complete(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.Complete(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		var perr *PermanentError
		if errors.As(err, &perr) {
			return "", err
		}
		last = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if i < r.max-1 {
			delay := r.base * time.Duration(1<<i)
			r.log.Warnw("ai call failed, backing off", "provider", r.next.Name(), "attempt", i+1, "delay", delay, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", last
}

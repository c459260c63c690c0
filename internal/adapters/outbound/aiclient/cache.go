package aiclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// WithCache memoizes completions by prompt hash for the lifetime of one
// run. Identical prompts recur when a run is re-executed after a flaky
// aspect, and dedup classification repeats per file.
func WithCache(next domain.AIClient, size int, metrics *domain.Metrics) (domain.AIClient, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &cached{next: next, lru: c, metrics: metrics}, nil
}

type cached struct {
	next    domain.AIClient
	lru     *lru.Cache[string, string]
	metrics *domain.Metrics
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) Complete(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(prompt)
	if resp, ok := c.lru.Get(key); ok {
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return resp, nil
	}

	resp, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.lru.Add(key, resp)
	return resp, nil
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

package aiclient

import (
	"context"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// WithMetrics counts every provider call and its payload sizes. Wrap it
// inside the retry middleware so each attempt is counted.
func WithMetrics(next domain.AIClient, m *domain.Metrics) domain.AIClient {
	return &measured{next: next, metrics: m}
}

type measured struct {
	next    domain.AIClient
	metrics *domain.Metrics
}

func (c *measured) Name() string { return c.next.Name() }

func (c *measured) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.next.Complete(ctx, prompt)
	c.metrics.RecordCall(len(prompt), len(resp))
	return resp, err
}

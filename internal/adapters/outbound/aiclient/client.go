// Package aiclient implements the AI provider port for Gemini,
// Anthropic, and Azure OpenAI, plus the middleware stack (retry,
// response cache, metrics) shared by all of them.
package aiclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// transportRetries is how often a transient provider failure is retried
// before the call is reported to the runner. Distinct from the runner's
// validation retries, which repair bad JSON, not bad connections.
const transportRetries = 3

// Options selects a provider and sizes its middleware stack.
type Options struct {
	Provider  string
	Model     string
	APIKey    string
	Endpoint  string
	MaxTokens int
	CacheSize int
	Metrics   *domain.Metrics
	Log       *zap.SugaredLogger
}

// New builds the configured provider wrapped in metrics, retry, and
// cache middleware, innermost first. A cache hit bypasses both the
// retry loop and the call counter.
func New(ctx context.Context, opts Options) (domain.AIClient, error) {
	var client domain.AIClient
	var err error
	switch opts.Provider {
	case "gemini":
		client, err = NewGemini(ctx, opts.APIKey, opts.Model, opts.MaxTokens)
	case "anthropic":
		client, err = NewAnthropic(opts.APIKey, opts.Model, opts.MaxTokens)
	case "azure":
		client, err = NewAzure(opts.Endpoint, opts.APIKey, opts.Model)
	default:
		err = fmt.Errorf("unknown ai provider %q (valid: gemini, anthropic, azure)", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if opts.Metrics != nil {
		client = WithMetrics(client, opts.Metrics)
	}
	client = WithRetry(client, transportRetries, 0, opts.Log)
	if opts.CacheSize > 0 {
		client, err = WithCache(client, opts.CacheSize, opts.Metrics)
		if err != nil {
			return nil, err
		}
	}
	return client, nil
}

// PermanentError marks failures that retrying cannot fix, like rejected
// credentials or a malformed request.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the retry middleware gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

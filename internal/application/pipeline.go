package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Pipeline schedules review aspects: consecutive parallel aspects run
// concurrently as one batch, sequential aspects run alone in declared
// order. A batch joins in full before the next starts, and a failed
// aspect never cancels its siblings.
type Pipeline struct {
	runner  *Runner
	budget  time.Duration
	metrics *domain.Metrics
	log     *zap.SugaredLogger
}

// PipelineResult carries everything the aspects produced: findings from
// the successful ones and one error per failed one.
type PipelineResult struct {
	Findings []domain.Finding
	Errors   []*domain.AspectError
}

// NewPipeline wires a scheduler around a runner. budget is the global
// wall-clock limit for the whole run; zero means no limit.
func NewPipeline(runner *Runner, budget time.Duration, metrics *domain.Metrics, log *zap.SugaredLogger) *Pipeline {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = domain.NewMetrics()
	}
	return &Pipeline{runner: runner, budget: budget, metrics: metrics, log: log}
}

// Execute runs every enabled aspect and collects the results. When the
// global budget expires, in-flight aspects are abandoned and recorded as
// timeouts; the partial results still flow to aggregation.
func (p *Pipeline) Execute(ctx context.Context, aspects []domain.ReviewAspect, pctx *domain.PipelineContext) PipelineResult {
	if p.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.budget)
		defer cancel()
	}

	var result PipelineResult
	for _, batch := range partition(aspects) {
		names := make([]string, len(batch))
		for i, a := range batch {
			names[i] = a.Name
		}
		p.log.Infow("running aspect batch", "aspects", names)

		findings, errs := p.runBatch(ctx, batch, pctx)
		result.Findings = append(result.Findings, findings...)
		result.Errors = append(result.Errors, errs...)
	}
	return result
}

// partition splits the declared aspect order into batches: maximal runs
// of parallel aspects, and singleton batches for sequential ones.
// Disabled aspects are dropped entirely.
func partition(aspects []domain.ReviewAspect) [][]domain.ReviewAspect {
	var batches [][]domain.ReviewAspect
	var parallel []domain.ReviewAspect
	flush := func() {
		if len(parallel) > 0 {
			batches = append(batches, parallel)
			parallel = nil
		}
	}
	for _, a := range aspects {
		if !a.Enabled {
			continue
		}
		if a.Execution == domain.ExecutionParallel {
			parallel = append(parallel, a)
			continue
		}
		flush()
		batches = append(batches, []domain.ReviewAspect{a})
	}
	flush()
	return batches
}

type aspectResult struct {
	name     string
	findings []domain.Finding
	err      *domain.AspectError
}

// runBatch launches every aspect in the batch and waits for all of them,
// or until ctx expires. The result channel is buffered so an abandoned
// goroutine can still complete and exit without a receiver.
func (p *Pipeline) runBatch(ctx context.Context, batch []domain.ReviewAspect, pctx *domain.PipelineContext) ([]domain.Finding, []*domain.AspectError) {
	results := make(chan aspectResult, len(batch))
	for _, a := range batch {
		go func(a domain.ReviewAspect) {
			start := time.Now()
			findings, err := p.runner.Run(ctx, a, pctx)
			p.metrics.RecordAspect(a.Name, time.Since(start))

			res := aspectResult{name: a.Name, findings: findings}
			if err != nil {
				var aerr *domain.AspectError
				if !errors.As(err, &aerr) {
					aerr = domain.NewAspectError(a.Name, domain.CauseAdapterError, err)
				}
				res.findings = nil
				res.err = aerr
			}
			results <- res
		}(a)
	}

	pending := make(map[string]bool, len(batch))
	for _, a := range batch {
		pending[a.Name] = true
	}

	var findings []domain.Finding
	var errs []*domain.AspectError
	collect := func(r aspectResult) {
		delete(pending, r.name)
		if r.err != nil {
			p.log.Warnw("aspect failed", "aspect", r.name, "cause", r.err.Cause, "error", r.err.Err)
			errs = append(errs, r.err)
			return
		}
		p.log.Infow("aspect finished", "aspect", r.name, "findings", len(r.findings))
		findings = append(findings, r.findings...)
	}

	for len(pending) > 0 {
		select {
		case r := <-results:
			collect(r)
		case <-ctx.Done():
			// take whatever finished in the same instant, then abandon the rest
			for len(pending) > 0 {
				select {
				case r := <-results:
					collect(r)
					continue
				default:
				}
				break
			}
			for _, a := range batch {
				if !pending[a.Name] {
					continue
				}
				delete(pending, a.Name)
				p.log.Warnw("abandoning aspect at deadline", "aspect", a.Name)
				errs = append(errs, domain.NewAspectError(a.Name, domain.CauseTimeout, ctx.Err()))
			}
			return findings, errs
		}
	}
	return findings, errs
}

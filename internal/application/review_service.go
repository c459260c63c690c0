package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
	"github.com/bodis/ai-review-cicd-actions/internal/domain/dedup"
)

// Messages appended to the verdict when too much of the pipeline failed
// to trust an approval.
const (
	ruleAllAspectsFailed  = "Review pipeline encountered critical errors"
	ruleMostAspectsFailed = "Too many review aspects failed - results uncertain"
)

// ReviewServiceConfig wires the service's collaborators. Aspects must
// already have their prompt templates resolved and be validated.
type ReviewServiceConfig struct {
	Config    *domain.Config
	Aspects   []domain.ReviewAspect
	Analyzers map[string]domain.Analyzer
	Client    domain.AIClient
	Renderer  domain.PromptRenderer
	Deduper   *dedup.Deduplicator
	Metrics   *domain.Metrics
	Log       *zap.SugaredLogger
}

// ReviewService runs the whole review pipeline for one change request:
// schedule aspects, deduplicate findings, aggregate, and evaluate the
// blocking policy. It returns the report; rendering and posting are the
// caller's concern.
type ReviewService struct {
	cfg       *domain.Config
	aspects   []domain.ReviewAspect
	analyzers map[string]domain.Analyzer
	client    domain.AIClient
	renderer  domain.PromptRenderer
	deduper   *dedup.Deduplicator
	metrics   *domain.Metrics
	log       *zap.SugaredLogger
}

func NewReviewService(cfg ReviewServiceConfig) *ReviewService {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = domain.NewMetrics()
	}
	return &ReviewService{
		cfg:       cfg.Config,
		aspects:   cfg.Aspects,
		analyzers: cfg.Analyzers,
		client:    cfg.Client,
		renderer:  cfg.Renderer,
		deduper:   cfg.Deduper,
		metrics:   metrics,
		log:       log,
	}
}

// Run reviews one change request end to end. Aspect failures never
// abort the run; they are carried in the report and, past a threshold,
// flip the verdict to blocked because the results are no longer
// trustworthy.
func (s *ReviewService) Run(ctx context.Context, change *domain.ChangeRequest) (*domain.ReviewReport, error) {
	if change == nil {
		return nil, fmt.Errorf("no change request to review")
	}
	start := time.Now()

	if strings.TrimSpace(change.Diff) == "" {
		s.log.Infow("empty diff, nothing to review")
		return s.emptyReport(change, start), nil
	}

	changed := domain.ParseChangedLines(change.Diff)
	profile := domain.DetectChangeProfile(change.ChangedFiles)
	s.log.Infow("review starting",
		"files", len(change.ChangedFiles),
		"languages", profile.Languages,
		"change_types", profile.ChangeTypes)

	pctx := domain.NewPipelineContext()
	runner := NewRunner(RunnerConfig{
		Analyzers:        s.analyzers,
		Client:           s.client,
		Renderer:         s.renderer,
		Change:           change,
		Profile:          profile,
		ChangedLines:     changed,
		OnlyChangedLines: s.cfg.Review.OnlyChangedLines,
		Log:              s.log,
	})
	pipeline := NewPipeline(runner, s.cfg.Review.Timeout.Std(), s.metrics, s.log)
	result := pipeline.Execute(ctx, s.aspects, pctx)

	var merged []domain.MergedFinding
	if s.cfg.Dedup.Enabled && s.deduper != nil {
		merged = s.deduper.Dedupe(ctx, result.Findings)
	} else {
		merged = make([]domain.MergedFinding, 0, len(result.Findings))
		for _, f := range result.Findings {
			merged = append(merged, domain.NewMergedFinding(f))
		}
	}

	summary := domain.Aggregate(merged)
	verdict := domain.Evaluate(summary, s.cfg.Blocking)

	failures := make([]domain.AspectFailure, 0, len(result.Errors))
	for _, e := range result.Errors {
		failures = append(failures, domain.FailureFromError(e))
	}

	uncertain := s.applyUncertaintyGuard(&verdict, len(result.Errors))

	report := &domain.ReviewReport{
		Verdict:     verdict,
		Summary:     summary,
		Findings:    merged,
		Failures:    failures,
		Uncertain:   uncertain,
		Change:      change,
		Profile:     profile,
		Metrics:     s.metrics.Snapshot(time.Since(start)),
		GeneratedAt: time.Now().UTC(),
	}
	s.log.Infow("review finished",
		"findings", len(merged),
		"failed_aspects", len(failures),
		"should_block", verdict.ShouldBlock,
		"duration", report.Metrics.Duration)
	return report, nil
}

// applyUncertaintyGuard blocks the change when so many aspects failed
// that an approval would be meaningless. It reports whether the guard
// fired.
func (s *ReviewService) applyUncertaintyGuard(verdict *domain.Verdict, failed int) bool {
	enabled := 0
	for _, a := range s.aspects {
		if a.Enabled {
			enabled++
		}
	}
	if enabled == 0 || failed == 0 {
		return false
	}
	switch {
	case failed == enabled:
		verdict.ShouldBlock = true
		verdict.TriggeredRules = append(verdict.TriggeredRules, ruleAllAspectsFailed)
	case failed*2 > enabled:
		verdict.ShouldBlock = true
		verdict.TriggeredRules = append(verdict.TriggeredRules, ruleMostAspectsFailed)
	default:
		return false
	}
	s.log.Warnw("blocking due to failed aspects", "failed", failed, "enabled", enabled)
	return true
}

func (s *ReviewService) emptyReport(change *domain.ChangeRequest, start time.Time) *domain.ReviewReport {
	summary := domain.Aggregate(nil)
	return &domain.ReviewReport{
		Verdict:     domain.Evaluate(summary, s.cfg.Blocking),
		Summary:     summary,
		Findings:    []domain.MergedFinding{},
		Change:      change,
		Profile:     domain.DetectChangeProfile(change.ChangedFiles),
		Metrics:     s.metrics.Snapshot(time.Since(start)),
		GeneratedAt: time.Now().UTC(),
	}
}

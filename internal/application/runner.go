package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// repairResponseLimit caps how much of an invalid response is echoed
// back in the corrective prompt.
const repairResponseLimit = 4000

// RunnerConfig carries everything a runner needs for one review run.
type RunnerConfig struct {
	Analyzers        map[string]domain.Analyzer
	Client           domain.AIClient
	Renderer         domain.PromptRenderer
	Change           *domain.ChangeRequest
	Profile          domain.ChangeProfile
	ChangedLines     domain.ChangedLines
	OnlyChangedLines bool
	Log              *zap.SugaredLogger
}

// Runner executes one review aspect at a time: static aspects delegate
// to analyzer adapters, AI aspects drive the prompt/validate/repair
// round-trip. Any failure surfaces as *domain.AspectError; the runner
// never panics the pipeline.
type Runner struct {
	analyzers        map[string]domain.Analyzer
	client           domain.AIClient
	renderer         domain.PromptRenderer
	change           *domain.ChangeRequest
	profile          domain.ChangeProfile
	changed          domain.ChangedLines
	onlyChangedLines bool
	log              *zap.SugaredLogger
}

func NewRunner(cfg RunnerConfig) *Runner {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{
		analyzers:        cfg.Analyzers,
		client:           cfg.Client,
		renderer:         cfg.Renderer,
		change:           cfg.Change,
		profile:          cfg.Profile,
		changed:          cfg.ChangedLines,
		onlyChangedLines: cfg.OnlyChangedLines,
		log:              log,
	}
}

// Run executes one aspect against the shared pipeline context.
// Successfully parsed findings are appended to the context before Run
// returns, so later sequential aspects see them even if this aspect
// fails afterwards.
func (r *Runner) Run(ctx context.Context, aspect domain.ReviewAspect, pctx *domain.PipelineContext) ([]domain.Finding, error) {
	switch aspect.Kind {
	case domain.AspectStatic:
		return r.runStatic(ctx, aspect, pctx)
	case domain.AspectAI:
		return r.runAI(ctx, aspect, pctx)
	default:
		return nil, domain.NewAspectError(aspect.Name, domain.CauseAdapterError, fmt.Errorf("unknown aspect kind %q", aspect.Kind))
	}
}

func (r *Runner) runStatic(ctx context.Context, aspect domain.ReviewAspect, pctx *domain.PipelineContext) ([]domain.Finding, error) {
	if !r.profile.HasAnyLanguage(aspect.Languages) {
		r.log.Infow("skipping static aspect, no matching files in change",
			"aspect", aspect.Name, "languages", aspect.Languages)
		return nil, nil
	}

	req := domain.AnalyzeRequest{RepoPath: r.change.RepoPath, ChangedFiles: r.change.ChangedFiles}
	var findings []domain.Finding
	for _, tool := range aspect.Tools {
		analyzer, ok := r.analyzers[tool]
		if !ok {
			r.log.Warnw("no analyzer registered for tool", "aspect", aspect.Name, "tool", tool)
			continue
		}
		out, err := analyzer.Analyze(ctx, req)
		if err != nil {
			if errors.Is(err, domain.ErrToolUnavailable) {
				r.log.Warnw("tool not installed, skipping", "aspect", aspect.Name, "tool", tool)
				continue
			}
			return nil, domain.NewAspectError(aspect.Name, domain.CauseAdapterError, fmt.Errorf("%s: %w", tool, err))
		}
		if r.onlyChangedLines {
			out = domain.FilterToChangedLines(out, r.changed)
		}
		pctx.Append(out)
		findings = append(findings, out...)
	}

	raw, _ := json.Marshal(findings)
	pctx.RecordOutput(aspect.Name, string(raw))
	return findings, nil
}

func (r *Runner) runAI(ctx context.Context, aspect domain.ReviewAspect, pctx *domain.PipelineContext) ([]domain.Finding, error) {
	basePrompt, err := r.renderer.Render(aspect, r.change, pctx)
	if err != nil {
		return nil, domain.NewAspectError(aspect.Name, domain.CauseAdapterError, fmt.Errorf("rendering prompt: %w", err))
	}

	timeout := aspect.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultAspectTimeout
	}

	prompt := basePrompt
	var lastErr error
	for attempt := 0; attempt <= aspect.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, domain.NewAspectError(aspect.Name, domain.CauseTimeout, ctx.Err())
		}
		if attempt > 0 {
			r.log.Infow("sending corrective round-trip", "aspect", aspect.Name, "attempt", attempt, "cause", lastErr)
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, callErr := r.client.Complete(callCtx, prompt)
		timedOut := callCtx.Err() == context.DeadlineExceeded
		cancel()

		if callErr != nil {
			if ctx.Err() != nil {
				return nil, domain.NewAspectError(aspect.Name, domain.CauseTimeout, ctx.Err())
			}
			if timedOut || errors.Is(callErr, context.DeadlineExceeded) {
				// a per-call timeout spends a retry, same as invalid output
				lastErr = fmt.Errorf("call timed out after %s", timeout)
				prompt = repairPrompt(basePrompt, "", lastErr)
				continue
			}
			return nil, domain.NewAspectError(aspect.Name, domain.CauseClientError, callErr)
		}

		findings, parseErr := parseFindings(raw, aspect.Name)
		if parseErr != nil {
			lastErr = parseErr
			r.log.Warnw("aspect response failed validation", "aspect", aspect.Name, "error", parseErr)
			prompt = repairPrompt(basePrompt, raw, parseErr)
			continue
		}

		pctx.Append(findings)
		pctx.RecordOutput(aspect.Name, raw)
		return findings, nil
	}

	return nil, domain.NewAspectError(aspect.Name, domain.CauseValidationExhausted, lastErr)
}

// parseFindings decodes one AI response into validated findings. The
// response may be {"findings": [...]} or a bare array; anything else is
// a validation error that feeds the corrective round-trip.
func parseFindings(raw, source string) ([]domain.Finding, error) {
	payload := domain.ExtractJSON(raw)

	var wrapper struct {
		Findings []domain.Finding `json:"findings"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
		var bare []domain.Finding
		if err2 := json.Unmarshal([]byte(payload), &bare); err2 != nil {
			return nil, fmt.Errorf("response is not valid JSON: %w", err)
		}
		wrapper.Findings = bare
	}
	if wrapper.Findings == nil {
		return nil, fmt.Errorf(`response JSON has no "findings" array`)
	}

	findings := make([]domain.Finding, 0, len(wrapper.Findings))
	for i, f := range wrapper.Findings {
		f.Source = source
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("finding %d failed validation: %w", i, err)
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// repairPrompt asks for corrected JSON: what was wrong, what came back,
// the exact shape wanted, then the original request.
func repairPrompt(original, previous string, cause error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your previous response could not be used: %v\n\n", cause)
	if previous != "" {
		if len(previous) > repairResponseLimit {
			previous = previous[:repairResponseLimit] + "\n[truncated]"
		}
		b.WriteString("This was your previous response:\n")
		b.WriteString(previous)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond again to the original request below with only valid JSON in exactly this shape, no code fences, no commentary:\n")
	b.WriteString(`{"findings": [{"file_path": "path/to/file.py", "line_number": 10, "severity": "critical|high|medium|low|info", "category": "security|performance|architecture|code_quality|testing|documentation|style", "message": "what is wrong", "suggestion": "how to fix it"}]}`)
	b.WriteString("\n\n---\n\n")
	b.WriteString(original)
	return b.String()
}

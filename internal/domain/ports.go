package domain

import (
	"context"
	"strings"
)

// AIClient executes one completion request against a hosted model. The
// response is raw text expected to contain a single JSON document;
// parsing and validation stay with the caller. Implementations handle
// transport-level retries themselves; callers treat any returned error
// as a client failure.
type AIClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ExtractJSON cuts the JSON document out of a raw model response. Models
// keep wrapping JSON in markdown fences or prose no matter how the
// prompt asks; callers still validate the result, this only trims the
// packaging.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(s, closer); end > start {
		return s[start : end+1]
	}
	return s
}

// AnalyzeRequest carries what a static tool needs for one run.
type AnalyzeRequest struct {
	RepoPath     string
	ChangedFiles []string
}

// Analyzer shells out to one deterministic tool and normalizes its
// native output into findings.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) ([]Finding, error)
	Tool() string
}

// PromptRenderer expands an AI aspect's template with the change under
// review and the findings accumulated so far.
type PromptRenderer interface {
	Render(aspect ReviewAspect, change *ChangeRequest, pctx *PipelineContext) (string, error)
}

// StatusState is the commit status reported back to the platform.
type StatusState string

const (
	StatusPending StatusState = "pending"
	StatusSuccess StatusState = "success"
	StatusFailure StatusState = "failure"
)

// Platform supplies the change request under review and receives the
// outcome. Implementations exist for GitHub, GitLab and a local git
// fallback.
type Platform interface {
	Name() string
	Context(ctx context.Context) (*ChangeRequest, error)
	PostSummary(ctx context.Context, markdown string) error
	UpdateStatus(ctx context.Context, state StatusState, description string) error
}

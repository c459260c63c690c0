package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Ruff lints Python files with `ruff check`.
type Ruff struct {
	log *zap.SugaredLogger
}

func NewRuff(log *zap.SugaredLogger) *Ruff {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ruff{log: log}
}

func (r *Ruff) Tool() string { return "ruff" }

func (r *Ruff) Analyze(ctx context.Context, req domain.AnalyzeRequest) ([]domain.Finding, error) {
	files := filterByExt(req.ChangedFiles, ".py")
	if len(files) == 0 {
		return nil, nil
	}

	args := append([]string{"check", "--output-format=json"}, files...)
	out, err := runTool(ctx, req.RepoPath, []int{0, 1}, "ruff", args...)
	if err != nil {
		return nil, err
	}
	findings, err := r.parse(out, req.RepoPath)
	if err != nil {
		return nil, err
	}
	r.log.Debugw("ruff finished", "files", len(files), "findings", len(findings))
	return findings, nil
}

type ruffResult struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

func (r *Ruff) parse(out []byte, repoPath string) ([]domain.Finding, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var results []ruffResult
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("parsing ruff output: %w", err)
	}

	findings := make([]domain.Finding, 0, len(results))
	for _, res := range results {
		findings = append(findings, domain.Finding{
			FilePath:   relPath(repoPath, res.Filename),
			LineNumber: res.Location.Row,
			Severity:   ruffSeverity(res.Code),
			Category:   mapCategory(res.Code, res.Message),
			Message:    res.Message,
			Source:     "ruff",
			RuleID:     res.Code,
		})
	}
	return findings, nil
}

// Severity by rule group: E pycodestyle errors, W warnings, F pyflakes,
// C complexity, N naming, D docstrings, I imports.
var ruffSeverities = map[byte]domain.Severity{
	'E': domain.SeverityHigh,
	'W': domain.SeverityMedium,
	'F': domain.SeverityHigh,
	'C': domain.SeverityLow,
	'N': domain.SeverityInfo,
	'D': domain.SeverityInfo,
	'I': domain.SeverityInfo,
}

func ruffSeverity(code string) domain.Severity {
	if code != "" {
		if sev, ok := ruffSeverities[code[0]]; ok {
			return sev
		}
	}
	return domain.SeverityMedium
}

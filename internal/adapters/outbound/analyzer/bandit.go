package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Bandit scans Python files for security issues. Everything it reports
// lands in the security category, and its severities shift one step up
// because a security HIGH is worth blocking on.
type Bandit struct {
	log *zap.SugaredLogger
}

func NewBandit(log *zap.SugaredLogger) *Bandit {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Bandit{log: log}
}

func (b *Bandit) Tool() string { return "bandit" }

func (b *Bandit) Analyze(ctx context.Context, req domain.AnalyzeRequest) ([]domain.Finding, error) {
	files := filterByExt(req.ChangedFiles, ".py")
	if len(files) == 0 {
		return nil, nil
	}

	args := append([]string{"-f", "json", "-r"}, files...)
	out, err := runTool(ctx, req.RepoPath, []int{0, 1}, "bandit", args...)
	if err != nil {
		return nil, err
	}
	findings, err := b.parse(out, req.RepoPath)
	if err != nil {
		return nil, err
	}
	b.log.Debugw("bandit finished", "files", len(files), "findings", len(findings))
	return findings, nil
}

type banditReport struct {
	Results []banditResult `json:"results"`
}

type banditResult struct {
	Filename      string `json:"filename"`
	LineNumber    int    `json:"line_number"`
	IssueSeverity string `json:"issue_severity"`
	IssueText     string `json:"issue_text"`
	TestID        string `json:"test_id"`
}

func (b *Bandit) parse(out []byte, repoPath string) ([]domain.Finding, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var report banditReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("parsing bandit output: %w", err)
	}

	findings := make([]domain.Finding, 0, len(report.Results))
	for _, res := range report.Results {
		findings = append(findings, domain.Finding{
			FilePath:   relPath(repoPath, res.Filename),
			LineNumber: res.LineNumber,
			Severity:   banditSeverity(res.IssueSeverity),
			Category:   domain.CategorySecurity,
			Message:    res.IssueText,
			Source:     "bandit",
			RuleID:     res.TestID,
		})
	}
	return findings, nil
}

func banditSeverity(s string) domain.Severity {
	switch s {
	case "HIGH":
		return domain.SeverityCritical
	case "MEDIUM":
		return domain.SeverityHigh
	case "LOW":
		return domain.SeverityMedium
	default:
		return domain.SeverityMedium
	}
}

package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// ESLint lints JavaScript and TypeScript files through npx, so a local
// node_modules installation is found as well as a global one.
type ESLint struct {
	log *zap.SugaredLogger
}

func NewESLint(log *zap.SugaredLogger) *ESLint {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ESLint{log: log}
}

func (e *ESLint) Tool() string { return "eslint" }

func (e *ESLint) Analyze(ctx context.Context, req domain.AnalyzeRequest) ([]domain.Finding, error) {
	files := filterByExt(req.ChangedFiles, ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs")
	if len(files) == 0 {
		return nil, nil
	}

	args := append([]string{"eslint", "--format=json"}, files...)
	out, err := runTool(ctx, req.RepoPath, []int{0, 1}, "npx", args...)
	if err != nil {
		return nil, err
	}
	findings, err := e.parse(out, req.RepoPath)
	if err != nil {
		return nil, err
	}
	e.log.Debugw("eslint finished", "files", len(files), "findings", len(findings))
	return findings, nil
}

type eslintFile struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

type eslintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
}

func (e *ESLint) parse(out []byte, repoPath string) ([]domain.Finding, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var report []eslintFile
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("parsing eslint output: %w", err)
	}

	var findings []domain.Finding
	for _, file := range report {
		path := relPath(repoPath, file.FilePath)
		for _, msg := range file.Messages {
			findings = append(findings, domain.Finding{
				FilePath:   path,
				LineNumber: msg.Line,
				Severity:   eslintSeverity(msg.Severity),
				Category:   mapCategory(msg.RuleID, msg.Message),
				Message:    msg.Message,
				Source:     "eslint",
				RuleID:     msg.RuleID,
			})
		}
	}
	return findings, nil
}

func eslintSeverity(level int) domain.Severity {
	switch level {
	case 2:
		return domain.SeverityHigh
	case 1:
		return domain.SeverityMedium
	default:
		return domain.SeverityInfo
	}
}

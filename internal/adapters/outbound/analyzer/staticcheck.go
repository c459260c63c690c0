package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// Staticcheck analyzes Go packages. It works on whole packages, not
// file lists, so it runs over ./... and the report is filtered down to
// the changed files afterwards.
type Staticcheck struct {
	log *zap.SugaredLogger
}

func NewStaticcheck(log *zap.SugaredLogger) *Staticcheck {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Staticcheck{log: log}
}

func (s *Staticcheck) Tool() string { return "staticcheck" }

func (s *Staticcheck) Analyze(ctx context.Context, req domain.AnalyzeRequest) ([]domain.Finding, error) {
	changed := filterByExt(req.ChangedFiles, ".go")
	if len(changed) == 0 {
		return nil, nil
	}

	out, err := runTool(ctx, req.RepoPath, []int{0, 1}, "staticcheck", "-f", "json", "./...")
	if err != nil {
		return nil, err
	}
	findings, err := s.parse(out, req.RepoPath, changed)
	if err != nil {
		return nil, err
	}
	s.log.Debugw("staticcheck finished", "files", len(changed), "findings", len(findings))
	return findings, nil
}

// staticcheck emits one JSON object per line.
type staticcheckResult struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Location struct {
		File string `json:"file"`
		Line int    `json:"line"`
	} `json:"location"`
}

func (s *Staticcheck) parse(out []byte, repoPath string, changed []string) ([]domain.Finding, error) {
	changedSet := make(map[string]bool, len(changed))
	for _, f := range changed {
		changedSet[f] = true
	}

	var findings []domain.Finding
	dec := json.NewDecoder(bytes.NewReader(out))
	for {
		var res staticcheckResult
		if err := dec.Decode(&res); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing staticcheck output: %w", err)
		}
		path := relPath(repoPath, res.Location.File)
		if !changedSet[path] {
			continue
		}
		findings = append(findings, domain.Finding{
			FilePath:   path,
			LineNumber: res.Location.Line,
			Severity:   staticcheckSeverity(res.Severity),
			Category:   staticcheckCategory(res.Code, res.Message),
			Message:    res.Message,
			Source:     "staticcheck",
			RuleID:     res.Code,
		})
	}
	return findings, nil
}

func staticcheckSeverity(s string) domain.Severity {
	switch s {
	case "error":
		return domain.SeverityHigh
	case "warning":
		return domain.SeverityMedium
	default:
		return domain.SeverityInfo
	}
}

func staticcheckCategory(code, message string) domain.Category {
	if strings.HasPrefix(code, "ST") {
		return domain.CategoryStyle
	}
	return mapCategory(code, message)
}

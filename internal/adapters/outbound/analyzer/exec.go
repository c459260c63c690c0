// Package analyzer shells out to the static analysis tools and
// normalizes their reports into findings. A tool that is not installed
// is a skip, not a failure, so a leaner CI image just runs fewer
// aspects.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// runTool executes a linter in the repo root and returns its stdout.
// Linters exit non-zero when they find issues; okExit lists the codes
// treated as a successful run.
func runTool(ctx context.Context, repoPath string, okExit []int, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrToolUnavailable)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if repoPath != "" {
		cmd.Dir = repoPath
	}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			for _, code := range okExit {
				if exitErr.ExitCode() == code {
					return out, nil
				}
			}
			return nil, fmt.Errorf("%s exited %d: %s", name, exitErr.ExitCode(), firstLine(exitErr.Stderr))
		}
		return nil, fmt.Errorf("running %s: %w", name, err)
	}
	return out, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func filterByExt(files []string, exts ...string) []string {
	var matched []string
	for _, f := range files {
		for _, ext := range exts {
			if strings.HasSuffix(f, ext) {
				matched = append(matched, f)
				break
			}
		}
	}
	return matched
}

// relPath rewrites a tool-reported absolute path relative to the repo
// so it lines up with the paths in the diff.
func relPath(repoPath, p string) string {
	if repoPath == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(repoPath, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}

var categoryTerms = []struct {
	category domain.Category
	terms    []string
}{
	{domain.CategorySecurity, []string{"security", "sql", "injection", "xss", "csrf", "auth", "crypto", "password", "secret", "vulnerability", "cve"}},
	{domain.CategoryPerformance, []string{"performance", "slow", "optimization", "efficiency", "loop", "algorithm", "complexity", "n+1"}},
	{domain.CategoryArchitecture, []string{"architecture", "design", "coupling", "cohesion", "dependency", "layer", "separation"}},
	{domain.CategoryTesting, []string{"test", "coverage", "assertion", "mock"}},
	{domain.CategoryDocumentation, []string{"documentation", "docstring", "comment", "doc", "missing-doc"}},
	{domain.CategoryStyle, []string{"style", "format", "naming", "convention", "whitespace", "indent", "line-length"}},
}

// mapCategory sorts a tool finding into a category by keywords in its
// rule ID and message. The first matching group wins, so security terms
// outrank style terms.
func mapCategory(ruleID, message string) domain.Category {
	rule := strings.ToLower(ruleID)
	msg := strings.ToLower(message)
	for _, group := range categoryTerms {
		for _, term := range group.terms {
			if strings.Contains(rule, term) || strings.Contains(msg, term) {
				return group.category
			}
		}
	}
	return domain.CategoryCodeQuality
}

package dedup_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
	"github.com/bodis/ai-review-cicd-actions/internal/domain/dedup"
)

type fakeClassifier struct {
	calls   int
	prompts []string
	fn      func(prompt string) (string, error)
}

func (f *fakeClassifier) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.fn(prompt)
}

func (f *fakeClassifier) Name() string { return "fake" }

func finding(file string, line int, sev domain.Severity, cat domain.Category, msg, source string) domain.Finding {
	return domain.Finding{
		FilePath:   file,
		LineNumber: line,
		Severity:   sev,
		Category:   cat,
		Message:    msg,
		Source:     source,
	}
}

func exactOnly() *dedup.Deduplicator {
	return dedup.New(nil, dedup.Config{Fuzzy: false}, nil)
}

func TestDedupe_ExactIdenticalMessages(t *testing.T) {
	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityMedium, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "security_review"),
	}

	merged := exactOnly().Dedupe(context.Background(), findings)

	require.Len(t, merged, 1)
	assert.Equal(t, domain.SeverityHigh, merged[0].Severity, "merge keeps the highest severity")
	assert.Equal(t, []string{"bandit", "security_review"}, merged[0].Sources)
	assert.Equal(t, 10, merged[0].LineNumber)
}

func TestDedupe_ExactNearIdenticalMessages(t *testing.T) {
	findings := []domain.Finding{
		finding("a.py", 5, domain.SeverityMedium, domain.CategoryCodeQuality, "Missing input validation for user_id", "ruff"),
		finding("a.py", 5, domain.SeverityMedium, domain.CategoryCodeQuality, "Missing input validation for the user_id parameter", "code_quality_review"),
	}

	merged := exactOnly().Dedupe(context.Background(), findings)

	require.Len(t, merged, 1)
	assert.Equal(t, []string{"code_quality_review", "ruff"}, merged[0].Sources)
}

func TestDedupe_ExactSplitsCamelCase(t *testing.T) {
	findings := []domain.Finding{
		finding("a.go", 3, domain.SeverityHigh, domain.CategorySecurity, "SQLInjection risk", "staticcheck"),
		finding("a.go", 3, domain.SeverityHigh, domain.CategorySecurity, "sql injection risk", "security_review"),
	}

	merged := exactOnly().Dedupe(context.Background(), findings)
	require.Len(t, merged, 1)
}

func TestDedupe_DistinctMessagesStayDistinct(t *testing.T) {
	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 10, domain.SeverityLow, domain.CategorySecurity, "unused variable result", "ruff"),
	}

	merged := exactOnly().Dedupe(context.Background(), findings)
	assert.Len(t, merged, 2)
}

func TestDedupe_DifferentPositionsStayDistinct(t *testing.T) {
	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("b.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 11, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
	}

	merged := exactOnly().Dedupe(context.Background(), findings)
	assert.Len(t, merged, 3)
}

func TestDedupe_MergeTakesFirstSuggestionAndRule(t *testing.T) {
	a := finding("a.py", 4, domain.SeverityMedium, domain.CategoryStyle, "line too long", "ruff")
	a.RuleID = "E501"
	b := finding("a.py", 4, domain.SeverityMedium, domain.CategoryStyle, "line too long", "pylint")
	b.Suggestion = "wrap the expression"

	merged := exactOnly().Dedupe(context.Background(), []domain.Finding{a, b})

	require.Len(t, merged, 1)
	assert.Equal(t, "E501", merged[0].RuleID)
	assert.Equal(t, "wrap the expression", merged[0].Suggestion)
}

func TestMerge_Idempotent(t *testing.T) {
	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityMedium, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "security_review"),
		finding("a.py", 12, domain.SeverityLow, domain.CategoryStyle, "line too long", "ruff"),
		finding("b.py", 1, domain.SeverityInfo, domain.CategoryDocumentation, "missing docstring", "pylint"),
	}
	d := exactOnly()

	once := d.Dedupe(context.Background(), findings)
	twice := d.Merge(context.Background(), once)

	assert.Equal(t, once, twice)
}

func TestMerge_SeverityMonotonic(t *testing.T) {
	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityInfo, domain.CategorySecurity, "weak hash used", "ruff"),
		finding("a.py", 10, domain.SeverityCritical, domain.CategorySecurity, "weak hash used", "bandit"),
		finding("a.py", 10, domain.SeverityMedium, domain.CategorySecurity, "weak hash used", "security_review"),
	}
	maxIn := domain.SeverityInfo
	for _, f := range findings {
		if f.Severity.Rank() > maxIn.Rank() {
			maxIn = f.Severity
		}
	}

	merged := exactOnly().Dedupe(context.Background(), findings)

	require.Len(t, merged, 1)
	assert.GreaterOrEqual(t, merged[0].Severity.Rank(), maxIn.Rank())
}

func TestDedupe_FuzzyMergesCrossSourceNeighbors(t *testing.T) {
	client := &fakeClassifier{fn: func(string) (string, error) {
		return `{"duplicate_groups": [[0, 1]]}`, nil
	}}
	d := dedup.New(client, dedup.DefaultConfig(), nil)

	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 11, domain.SeverityHigh, domain.CategorySecurity, "possible SQL injection", "security_review"),
	}

	merged := d.Dedupe(context.Background(), findings)

	require.Len(t, merged, 1)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, []string{"bandit", "security_review"}, merged[0].Sources)
	assert.Equal(t, 10, merged[0].LineNumber, "merge keeps the earliest line")
	assert.Equal(t, "SQL injection risk", merged[0].Message)
}

func TestDedupe_FuzzyRespectsLineWindow(t *testing.T) {
	client := &fakeClassifier{fn: func(string) (string, error) {
		return `{"duplicate_groups": [[0, 1]]}`, nil
	}}
	d := dedup.New(client, dedup.Config{Fuzzy: true, LineWindow: 3}, nil)

	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 40, domain.SeverityHigh, domain.CategorySecurity, "possible SQL injection", "security_review"),
	}

	merged := d.Dedupe(context.Background(), findings)

	assert.Len(t, merged, 2)
	assert.Zero(t, client.calls, "far-apart findings are not candidates")
}

func TestDedupe_FuzzySkipsSameSourcePairs(t *testing.T) {
	client := &fakeClassifier{fn: func(string) (string, error) {
		return `{"duplicate_groups": [[0, 1]]}`, nil
	}}
	d := dedup.New(client, dedup.DefaultConfig(), nil)

	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 11, domain.SeverityHigh, domain.CategorySecurity, "another injection point", "bandit"),
	}

	merged := d.Dedupe(context.Background(), findings)

	assert.Len(t, merged, 2)
	assert.Zero(t, client.calls)
}

func TestDedupe_FuzzyBatchesOneCallPerFile(t *testing.T) {
	client := &fakeClassifier{fn: func(string) (string, error) {
		return `{"duplicate_groups": []}`, nil
	}}
	d := dedup.New(client, dedup.DefaultConfig(), nil)

	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "issue one", "bandit"),
		finding("a.py", 11, domain.SeverityHigh, domain.CategorySecurity, "issue two", "security_review"),
		finding("b.py", 5, domain.SeverityMedium, domain.CategoryPerformance, "slow loop", "review"),
		finding("b.py", 6, domain.SeverityMedium, domain.CategoryPerformance, "loop allocates", "staticcheck"),
	}

	d.Dedupe(context.Background(), findings)

	assert.Equal(t, 2, client.calls, "one batched call per file")
}

func TestDedupe_FuzzyFailureKeepsFindingsDistinct(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) (string, error)
	}{
		{"client error", func(string) (string, error) { return "", errors.New("rate limited") }},
		{"invalid json", func(string) (string, error) { return "sorry, cannot help", nil }},
		{"index out of range", func(string) (string, error) { return `{"duplicate_groups": [[0, 9]]}`, nil }},
		{"index reused", func(string) (string, error) { return `{"duplicate_groups": [[0, 1], [1, 0]]}`, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := dedup.New(&fakeClassifier{fn: tt.fn}, dedup.DefaultConfig(), nil)
			findings := []domain.Finding{
				finding("a.py", 10, domain.SeverityHigh, domain.CategorySecurity, "SQL injection risk", "bandit"),
				finding("a.py", 11, domain.SeverityHigh, domain.CategorySecurity, "possible SQL injection", "security_review"),
			}

			merged := d.Dedupe(context.Background(), findings)

			assert.Len(t, merged, 2, "fuzzy failures must never drop or merge findings")
		})
	}
}

func TestDedupe_FuzzySourceUnionSurvivesRemerge(t *testing.T) {
	client := &fakeClassifier{fn: func(string) (string, error) {
		return `{"duplicate_groups": [[0, 1]]}`, nil
	}}
	d := dedup.New(client, dedup.DefaultConfig(), nil)

	findings := []domain.Finding{
		finding("a.py", 10, domain.SeverityMedium, domain.CategorySecurity, "SQL injection risk", "bandit"),
		finding("a.py", 11, domain.SeverityHigh, domain.CategorySecurity, "possible SQL injection", "security_review"),
	}

	once := d.Dedupe(context.Background(), findings)
	require.Len(t, once, 1)
	twice := d.Merge(context.Background(), once)
	require.Len(t, twice, 1)

	assert.Equal(t, []string{"bandit", "security_review"}, twice[0].Sources)
	assert.GreaterOrEqual(t, twice[0].Severity.Rank(), once[0].Severity.Rank())
}

func TestDedupe_FileLevelFindingsSkipFuzzy(t *testing.T) {
	client := &fakeClassifier{fn: func(string) (string, error) {
		return `{"duplicate_groups": [[0, 1]]}`, nil
	}}
	d := dedup.New(client, dedup.DefaultConfig(), nil)

	findings := []domain.Finding{
		finding("a.py", 0, domain.SeverityMedium, domain.CategoryDocumentation, "missing module docstring", "pylint"),
		finding("a.py", 0, domain.SeverityMedium, domain.CategoryTesting, "no tests for module", "code_quality_review"),
	}

	merged := d.Dedupe(context.Background(), findings)

	assert.Len(t, merged, 2)
	assert.Zero(t, client.calls, "file-level findings have no line proximity")
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, exactOnly().Dedupe(context.Background(), nil))
}

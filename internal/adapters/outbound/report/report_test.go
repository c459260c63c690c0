package report_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bodis/ai-review-cicd-actions/internal/adapters/outbound/report"
	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

func blockedReport() *domain.ReviewReport {
	findings := []domain.MergedFinding{
		{
			Finding: domain.Finding{
				FilePath:   "src/db.py",
				LineNumber: 42,
				Severity:   domain.SeverityCritical,
				Category:   domain.CategorySecurity,
				Message:    "SQL injection via string concatenation",
				Suggestion: "Use parameterized queries",
			},
			Sources: []string{"bandit", "security_review"},
		},
		{
			Finding: domain.Finding{
				FilePath: "src/db.py",
				Severity: domain.SeverityMedium,
				Category: domain.CategoryCodeQuality,
				Message:  "Connection opened without close",
			},
			Sources: []string{"code_quality_review"},
		},
	}
	return &domain.ReviewReport{
		Verdict: domain.Verdict{
			ShouldBlock:    true,
			TriggeredRules: []string{"Found 1 critical issue(s)"},
			CountsBySeverity: map[domain.Severity]int{
				domain.SeverityCritical: 1,
				domain.SeverityMedium:   1,
			},
		},
		Summary:  domain.Aggregate(findings),
		Findings: findings,
		Change: &domain.ChangeRequest{
			Number:       42,
			Title:        "Add user lookup",
			ChangedFiles: []string{"src/db.py"},
		},
		Profile:     domain.ChangeProfile{Languages: []string{"python"}},
		Metrics:     domain.RunMetrics{APICalls: 3, CacheHits: 1, Duration: "4.2s"},
		GeneratedAt: time.Now().UTC(),
	}
}

func TestMarkdownBlockedReport(t *testing.T) {
	md := report.Markdown(blockedReport())

	assert.True(t, strings.HasPrefix(md, domain.SummaryMarker))
	assert.Contains(t, md, "## ❌ Review Status: BLOCKED")
	assert.Contains(t, md, "**Reason:** Found 1 critical issue(s)")
	assert.Contains(t, md, "**CRITICAL:** 1")
	assert.Contains(t, md, "**Security:** 1")
	assert.Contains(t, md, "**Code Quality:** 1")
	assert.Contains(t, md, "`src/db.py` (Line 42)")
	assert.Contains(t, md, "SQL injection via string concatenation")
	assert.Contains(t, md, "💡 **Suggestion:** Use parameterized queries")
	assert.Contains(t, md, "*Reported by: bandit, security_review*")
	assert.Contains(t, md, "- **AI calls:** 3 (1 cached)")
	assert.Contains(t, md, "*Automated review for #42 Add user lookup*")
	assert.NotContains(t, md, "more finding(s)", "all findings shown, no overflow note")
}

func TestMarkdownApprovedCleanReport(t *testing.T) {
	r := &domain.ReviewReport{
		Verdict: domain.Verdict{ShouldBlock: false},
		Summary: domain.Aggregate(nil),
	}
	md := report.Markdown(r)

	assert.Contains(t, md, "## ✅ Review Status: APPROVED")
	assert.NotContains(t, md, "Findings by Severity")
	assert.NotContains(t, md, "Key Findings")
	assert.Contains(t, md, "- **Total findings:** 0")
}

func TestMarkdownUncertainWarning(t *testing.T) {
	r := blockedReport()
	r.Uncertain = true
	md := report.Markdown(r)
	assert.Contains(t, md, "Treat this result as incomplete")
}

func TestMarkdownFailuresSection(t *testing.T) {
	r := blockedReport()
	r.Failures = []domain.AspectFailure{
		{Aspect: "architecture_review", Cause: "timeout", Detail: "call timed out after 5m0s"},
		{Aspect: "ruff_static", Cause: "adapter_error"},
	}
	md := report.Markdown(r)

	assert.Contains(t, md, "### Aspects That Could Not Run")
	assert.Contains(t, md, "**architecture_review** (timeout): call timed out after 5m0s")
	assert.Contains(t, md, "**ruff_static** (adapter_error)")
}

func TestMarkdownOverflowNote(t *testing.T) {
	var findings []domain.MergedFinding
	for i := 0; i < 14; i++ {
		findings = append(findings, domain.MergedFinding{
			Finding: domain.Finding{
				FilePath:   "src/app.py",
				LineNumber: i + 1,
				Severity:   domain.SeverityMedium,
				Category:   domain.CategoryCodeQuality,
				Message:    "issue",
			},
			Sources: []string{"ruff"},
		})
	}
	r := &domain.ReviewReport{Summary: domain.Aggregate(findings), Findings: findings}

	md := report.Markdown(r)
	assert.Contains(t, md, "... and 4 more finding(s).")
}

func TestStatusDescription(t *testing.T) {
	blocked := blockedReport()
	assert.Equal(t, "Found 1 critical issue(s)", report.StatusDescription(blocked))

	blocked.Verdict.TriggeredRules = nil
	assert.Equal(t, "Review blocked", report.StatusDescription(blocked))

	clean := &domain.ReviewReport{Summary: domain.Aggregate(nil)}
	assert.Equal(t, "No issues found", report.StatusDescription(clean))

	approved := blockedReport()
	approved.Verdict.ShouldBlock = false
	assert.Equal(t, "Approved with 2 finding(s)", report.StatusDescription(approved))
}

func TestStatusDescriptionTruncatesLongRules(t *testing.T) {
	r := blockedReport()
	r.Verdict.TriggeredRules = []string{strings.Repeat("x", 200)}

	desc := report.StatusDescription(r)
	assert.Len(t, desc, 140)
	assert.True(t, strings.HasSuffix(desc, "..."))
}

func TestTerminalRendersVerdictAndFindings(t *testing.T) {
	out := report.Terminal(blockedReport())

	assert.Contains(t, out, "BLOCKED")
	assert.Contains(t, out, "Found 1 critical issue(s)")
	assert.Contains(t, out, "src/db.py:42")
	assert.Contains(t, out, "SQL injection via string concatenation")
	assert.Contains(t, out, "reported by bandit, security_review")
}

func TestTerminalCleanRun(t *testing.T) {
	r := &domain.ReviewReport{Summary: domain.Aggregate(nil)}
	out := report.Terminal(r)

	assert.Contains(t, out, "APPROVED")
	assert.Contains(t, out, "No issues found.")
}

func TestTerminalFailedAspects(t *testing.T) {
	r := blockedReport()
	r.Failures = []domain.AspectFailure{{Aspect: "security_review", Cause: "client_error", Detail: "status 401"}}
	out := report.Terminal(r)

	assert.Contains(t, out, "Failed Aspects")
	assert.Contains(t, out, "security_review")
	assert.Contains(t, out, "status 401")
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "review.json")
	store := report.NewStore()
	original := blockedReport()

	require.NoError(t, store.Save(original, path))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Verdict.ShouldBlock)
	assert.Equal(t, original.Summary.Total, loaded.Summary.Total)
	assert.Len(t, loaded.Findings, 2)
	assert.Equal(t, []string{"bandit", "security_review"}, loaded.Findings[0].Sources)
}

func TestStoreLoadMissingFile(t *testing.T) {
	_, err := report.NewStore().Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

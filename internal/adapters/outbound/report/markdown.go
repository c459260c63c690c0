// Package report renders a finished review three ways: markdown for the
// hosting platform, styled terminal output for local runs, and a JSON
// artifact for later inspection.
package report

import (
	"fmt"
	"strings"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

var severityEmoji = map[domain.Severity]string{
	domain.SeverityCritical: "🔴",
	domain.SeverityHigh:     "🟠",
	domain.SeverityMedium:   "🟡",
	domain.SeverityLow:      "🔵",
	domain.SeverityInfo:     "⚪",
}

// Markdown renders the platform summary comment. The output embeds the
// summary marker so the next run can find and update this comment.
func Markdown(r *domain.ReviewReport) string {
	var b strings.Builder
	b.WriteString(domain.SummaryMarker + "\n")
	b.WriteString("# AI Code Review\n\n")

	if r.Verdict.ShouldBlock {
		b.WriteString("## ❌ Review Status: BLOCKED\n\n")
		for _, rule := range r.Verdict.TriggeredRules {
			fmt.Fprintf(&b, "**Reason:** %s\n\n", rule)
		}
	} else {
		b.WriteString("## ✅ Review Status: APPROVED\n\n")
	}

	if r.Uncertain {
		b.WriteString("> ⚠️ Most review aspects failed to run. Treat this result as incomplete.\n\n")
	}

	b.WriteString("### Summary\n\n")
	fmt.Fprintf(&b, "- **Total findings:** %d\n", r.Summary.Total)
	if r.Change != nil {
		fmt.Fprintf(&b, "- **Files changed:** %d\n", len(r.Change.ChangedFiles))
	}
	if len(r.Profile.Languages) > 0 {
		fmt.Fprintf(&b, "- **Languages:** %s\n", strings.Join(r.Profile.Languages, ", "))
	}
	if r.Metrics.Duration != "" {
		fmt.Fprintf(&b, "- **Duration:** %s\n", r.Metrics.Duration)
	}
	if r.Metrics.APICalls > 0 || r.Metrics.CacheHits > 0 {
		fmt.Fprintf(&b, "- **AI calls:** %d (%d cached)\n", r.Metrics.APICalls, r.Metrics.CacheHits)
	}

	writeSeverityBreakdown(&b, r.Summary.CountsBySeverity)
	writeCategoryBreakdown(&b, r.Summary.CountsByCategory)
	writeFailures(&b, r.Failures)
	writeTopFindings(&b, r)

	b.WriteString("\n---\n")
	if r.Change != nil && r.Change.Number > 0 {
		fmt.Fprintf(&b, "*Automated review for #%d %s*\n", r.Change.Number, r.Change.Title)
	} else {
		b.WriteString("*Automated review*\n")
	}
	return b.String()
}

func writeSeverityBreakdown(b *strings.Builder, counts map[domain.Severity]int) {
	any := false
	for _, sev := range domain.Severities() {
		if counts[sev] > 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}
	b.WriteString("\n### Findings by Severity\n\n")
	for _, sev := range domain.Severities() {
		if counts[sev] > 0 {
			fmt.Fprintf(b, "- %s **%s:** %d\n", severityEmoji[sev], strings.ToUpper(string(sev)), counts[sev])
		}
	}
}

func writeCategoryBreakdown(b *strings.Builder, counts map[domain.Category]int) {
	categories := []domain.Category{
		domain.CategorySecurity, domain.CategoryArchitecture, domain.CategoryPerformance,
		domain.CategoryCodeQuality, domain.CategoryTesting, domain.CategoryDocumentation,
		domain.CategoryStyle,
	}
	any := false
	for _, c := range categories {
		if counts[c] > 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}
	b.WriteString("\n### Findings by Category\n\n")
	for _, c := range categories {
		if counts[c] > 0 {
			fmt.Fprintf(b, "- **%s:** %d\n", categoryTitle(c), counts[c])
		}
	}
}

func writeFailures(b *strings.Builder, failures []domain.AspectFailure) {
	if len(failures) == 0 {
		return
	}
	b.WriteString("\n### Aspects That Could Not Run\n\n")
	for _, f := range failures {
		if f.Detail != "" {
			fmt.Fprintf(b, "- ⚠️ **%s** (%s): %s\n", f.Aspect, f.Cause, f.Detail)
		} else {
			fmt.Fprintf(b, "- ⚠️ **%s** (%s)\n", f.Aspect, f.Cause)
		}
	}
}

func writeTopFindings(b *strings.Builder, r *domain.ReviewReport) {
	if len(r.Summary.TopFindings) == 0 {
		return
	}
	b.WriteString("\n### 🔍 Key Findings\n")
	for _, f := range r.Summary.TopFindings {
		fmt.Fprintf(b, "\n#### %s %s\n", severityEmoji[f.Severity], categoryTitle(f.Category))
		location := fmt.Sprintf("**File:** `%s`", f.FilePath)
		if !f.FileLevel() {
			location += fmt.Sprintf(" (Line %d)", f.LineNumber)
		}
		b.WriteString(location + "\n\n")
		b.WriteString(f.Message + "\n")
		if f.Suggestion != "" {
			fmt.Fprintf(b, "\n💡 **Suggestion:** %s\n", f.Suggestion)
		}
		if len(f.Sources) > 0 {
			fmt.Fprintf(b, "\n*Reported by: %s*\n", strings.Join(f.Sources, ", "))
		}
	}
	if rest := r.Summary.Total - len(r.Summary.TopFindings); rest > 0 {
		fmt.Fprintf(b, "\n... and %d more finding(s).\n", rest)
	}
}

// categoryTitle renders a category for humans: code_quality reads as
// Code Quality.
func categoryTitle(c domain.Category) string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// StatusDescription condenses the verdict into a commit status line.
// Hosting platforms cap the description length, so keep it short.
func StatusDescription(r *domain.ReviewReport) string {
	if r.Verdict.ShouldBlock {
		if len(r.Verdict.TriggeredRules) > 0 {
			return truncate(r.Verdict.TriggeredRules[0], 140)
		}
		return "Review blocked"
	}
	if r.Summary.Total == 0 {
		return "No issues found"
	}
	return fmt.Sprintf("Approved with %d finding(s)", r.Summary.Total)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

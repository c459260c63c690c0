package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	orange  = lipgloss.Color("#FB923C")
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))

	severityStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityCritical: lipgloss.NewStyle().Foreground(danger).Bold(true),
		domain.SeverityHigh:     lipgloss.NewStyle().Foreground(orange).Bold(true),
		domain.SeverityMedium:   lipgloss.NewStyle().Foreground(warning),
		domain.SeverityLow:      lipgloss.NewStyle().Foreground(info),
		domain.SeverityInfo:     lipgloss.NewStyle().Foreground(dim),
	}
)

// Terminal renders the review for local runs.
func Terminal(r *domain.ReviewReport) string {
	var b strings.Builder

	title := headerStyle.Render("ai-review")
	subtitle := dimStyle.Render("Automated Change Review")
	verdict := passStyle.Bold(true).Render("APPROVED")
	if r.Verdict.ShouldBlock {
		verdict = failStyle.Bold(true).Render("BLOCKED")
	}
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + verdict))
	b.WriteString("\n\n")

	for _, rule := range r.Verdict.TriggeredRules {
		b.WriteString("  " + failStyle.Render(rule) + "\n")
	}
	if r.Uncertain {
		b.WriteString("  " + warnStyle.Render("Most review aspects failed; results are incomplete.") + "\n")
	}
	if len(r.Verdict.TriggeredRules) > 0 || r.Uncertain {
		b.WriteString("\n")
	}

	writeRunLine(&b, r)
	writeSeverityCounts(&b, r.Summary.CountsBySeverity)

	b.WriteString("\n  " + separatorLine + "\n\n")

	if len(r.Summary.TopFindings) > 0 {
		b.WriteString("  " + titleStyle.Render("Findings") + "\n\n")
		for _, f := range r.Summary.TopFindings {
			renderFinding(&b, f)
		}
		if rest := r.Summary.Total - len(r.Summary.TopFindings); rest > 0 {
			fmt.Fprintf(&b, "    %s\n", dimStyle.Render(fmt.Sprintf("... and %d more finding(s)", rest)))
		}
	} else {
		b.WriteString("  " + passStyle.Render("No issues found.") + "\n")
	}

	if len(r.Failures) > 0 {
		b.WriteString("\n  " + titleStyle.Render("Failed Aspects") + "\n\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "    %s %s %s\n",
				failStyle.Render("✗"),
				titleStyle.Render(f.Aspect),
				dimStyle.Render(fmt.Sprintf("(%s)", f.Cause)))
			if f.Detail != "" {
				fmt.Fprintf(&b, "      %s\n", faintStyle.Render(f.Detail))
			}
		}
	}

	b.WriteString("\n")
	return b.String()
}

func writeRunLine(b *strings.Builder, r *domain.ReviewReport) {
	parts := []string{fmt.Sprintf("%d finding(s)", r.Summary.Total)}
	if r.Change != nil {
		parts = append(parts, fmt.Sprintf("%d file(s)", len(r.Change.ChangedFiles)))
	}
	if len(r.Profile.Languages) > 0 {
		parts = append(parts, strings.Join(r.Profile.Languages, ", "))
	}
	if r.Metrics.Duration != "" {
		parts = append(parts, r.Metrics.Duration)
	}
	b.WriteString("  " + dimStyle.Render(strings.Join(parts, "  ·  ")) + "\n")
}

func writeSeverityCounts(b *strings.Builder, counts map[domain.Severity]int) {
	var tags []string
	for _, sev := range domain.Severities() {
		if counts[sev] > 0 {
			tags = append(tags, severityStyles[sev].Render(fmt.Sprintf("%d %s", counts[sev], sev)))
		}
	}
	if len(tags) > 0 {
		b.WriteString("  " + strings.Join(tags, "  ") + "\n")
	}
}

func renderFinding(b *strings.Builder, f domain.MergedFinding) {
	location := f.FilePath
	if !f.FileLevel() {
		location = fmt.Sprintf("%s:%d", f.FilePath, f.LineNumber)
	}
	fmt.Fprintf(b, "    %s %s %s\n",
		severityTag(f.Severity),
		titleStyle.Render(categoryTitle(f.Category)),
		fileStyle.Render(location))
	fmt.Fprintf(b, "         %s\n", dimStyle.Render(f.Message))
	if f.Suggestion != "" {
		fmt.Fprintf(b, "         %s\n", faintStyle.Render(f.Suggestion))
	}
	if len(f.Sources) > 1 {
		fmt.Fprintf(b, "         %s\n", faintStyle.Render("reported by "+strings.Join(f.Sources, ", ")))
	}
	b.WriteString("\n")
}

func severityTag(sev domain.Severity) string {
	style, ok := severityStyles[sev]
	if !ok {
		style = dimStyle
	}
	return style.Render(padRight(string(sev), 8))
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

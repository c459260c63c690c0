// Package prompt renders AI review prompts. Templates carry
// {PLACEHOLDER} markers filled per run with the change under review,
// the configured project context, and a digest of findings from
// aspects that already completed. Replacement is single-pass, so
// marker-like text inside the diff is never re-expanded.
package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bodis/ai-review-cicd-actions/internal/domain"
)

// maxDiffChars caps the diff injected into one prompt to keep requests
// inside model input limits.
const maxDiffChars = 50000

const truncationNotice = "\n\n... (diff truncated for size)"

// sharedFindingsPerAspect caps how many findings from each earlier
// aspect are surfaced to later sequential aspects.
const sharedFindingsPerAspect = 3

// Renderer expands aspect templates for one configured project.
type Renderer struct {
	project domain.ContextConfig
}

func NewRenderer(project domain.ContextConfig) *Renderer {
	return &Renderer{project: project}
}

func (r *Renderer) Render(aspect domain.ReviewAspect, change *domain.ChangeRequest, pctx *domain.PipelineContext) (string, error) {
	if aspect.PromptTemplate == "" {
		return "", fmt.Errorf("aspect %q has no prompt template", aspect.Name)
	}
	if change == nil {
		return "", fmt.Errorf("rendering %q: no change request", aspect.Name)
	}

	profile := domain.DetectChangeProfile(change.ChangedFiles)

	rep := strings.NewReplacer(
		"{PR_NUMBER}", strconv.Itoa(change.Number),
		"{PR_TITLE}", change.Title,
		"{PR_DESCRIPTION}", fallback(change.Description, "No description provided"),
		"{PR_AUTHOR}", change.Author,
		"{BASE_BRANCH}", change.BaseBranch,
		"{HEAD_BRANCH}", change.HeadBranch,
		"{CHANGED_FILES}", changedFiles(change.ChangedFiles),
		"{PR_DIFF}", cappedDiff(change.Diff),
		"{LANGUAGES}", fallback(strings.Join(profile.Languages, ", "), "not detected"),
		"{CHANGE_TYPES}", strings.Join(profile.ChangeTypes, ", "),
		"{COMPANY_POLICIES}", section("Company Policies", r.project.Policies, "No company-specific policies configured."),
		"{PROJECT_CONTEXT}", section("Project Context", r.project.Project, "No project context configured."),
		"{PROJECT_CONSTRAINTS}", section("Project Constraints", r.project.Constraints, "No project-specific constraints configured."),
		"{CUSTOM_RULES}", section("Custom Rules", r.project.CustomRules, "No custom review rules configured."),
		"{SHARED_CONTEXT}", sharedContext(pctx),
	)
	return rep.Replace(aspect.PromptTemplate), nil
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func changedFiles(files []string) string {
	if len(files) == 0 {
		return "No files changed."
	}
	var b strings.Builder
	b.WriteString("### Changed Files\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	return strings.TrimRight(b.String(), "\n")
}

// cappedDiff truncates oversized diffs at a rune boundary and marks the
// cut so the model knows the input is partial.
func cappedDiff(diff string) string {
	if len(diff) <= maxDiffChars {
		return diff
	}
	cut := maxDiffChars
	for cut > 0 && !utf8.RuneStart(diff[cut]) {
		cut--
	}
	return diff[:cut] + truncationNotice
}

func section(title, body, empty string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return empty
	}
	return "## " + title + "\n\n" + body
}

// sharedContext summarizes what earlier aspects found, grouped by
// source. AI sources appear in completion order; static tool sources
// follow alphabetically. Each group shows its most severe findings.
func sharedContext(pctx *domain.PipelineContext) string {
	if pctx == nil {
		return "No prior review context available."
	}
	findings := pctx.Findings()
	if len(findings) == 0 {
		return "No prior review context available."
	}

	bySource := make(map[string][]domain.Finding)
	for _, f := range findings {
		bySource[f.Source] = append(bySource[f.Source], f)
	}

	seen := make(map[string]bool)
	var order []string
	for _, name := range pctx.CompletedAspects() {
		if _, ok := bySource[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	var rest []string
	for src := range bySource {
		if !seen[src] {
			rest = append(rest, src)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	var b strings.Builder
	b.WriteString("## Context from Previous Reviews\n")
	for _, src := range order {
		group := bySource[src]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Severity.Rank() > group[j].Severity.Rank()
		})
		fmt.Fprintf(&b, "\n### %s\nFound %d issue(s):\n", src, len(group))
		for i, f := range group {
			if i == sharedFindingsPerAspect {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s\n", f.Severity, f.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies how serious a finding is. The order is total:
// critical outranks high, which outranks medium, low and info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityInfo:     0,
}

// Rank returns the numeric rank of the severity, higher is more severe.
// Unknown severities rank below info.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Severities lists all valid severities from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// Category groups findings by the kind of problem they describe.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategoryArchitecture  Category = "architecture"
	CategoryCodeQuality   Category = "code_quality"
	CategoryTesting       Category = "testing"
	CategoryDocumentation Category = "documentation"
	CategoryStyle         Category = "style"
)

// categoryPriority orders categories for ranking; lower sorts first.
var categoryPriority = map[Category]int{
	CategorySecurity:      0,
	CategoryArchitecture:  1,
	CategoryPerformance:   2,
	CategoryCodeQuality:   3,
	CategoryTesting:       4,
	CategoryDocumentation: 5,
	CategoryStyle:         6,
}

// Priority returns the ranking position of the category, lower is more
// important. Unknown categories sort last.
func (c Category) Priority() int {
	if p, ok := categoryPriority[c]; ok {
		return p
	}
	return len(categoryPriority)
}

func (c Category) Valid() bool {
	_, ok := categoryPriority[c]
	return ok
}

// Finding is one reported issue from a single review aspect. Duplicates
// across sources are expected and resolved by the deduplicator, never
// prevented upstream.
type Finding struct {
	FilePath   string   `json:"file_path"`
	LineNumber int      `json:"line_number,omitempty"`
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Source     string   `json:"source"`
	RuleID     string   `json:"rule_id,omitempty"`
}

// FileLevel reports whether the finding applies to a whole file rather
// than a specific line.
func (f Finding) FileLevel() bool { return f.LineNumber == 0 }

// Validate checks that the finding satisfies the canonical shape. The
// returned error text is written for the corrective round-trip sent back
// to an AI reviewer, so it names the offending field and value.
func (f Finding) Validate() error {
	if strings.TrimSpace(f.FilePath) == "" {
		return fmt.Errorf("finding is missing file_path")
	}
	if strings.TrimSpace(f.Message) == "" {
		return fmt.Errorf("finding for %s is missing message", f.FilePath)
	}
	if !f.Severity.Valid() {
		return fmt.Errorf("finding for %s has invalid severity %q (expected one of critical, high, medium, low, info)", f.FilePath, f.Severity)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("finding for %s has invalid category %q (expected one of security, performance, architecture, code_quality, testing, documentation, style)", f.FilePath, f.Category)
	}
	if f.LineNumber < 0 {
		return fmt.Errorf("finding for %s has negative line_number %d", f.FilePath, f.LineNumber)
	}
	return nil
}

// MergedFinding is a finding that represents one or more deduplicated
// findings. Sources holds the distinct, sorted set of every absorbed
// finding's source; the embedded Finding is the representative of the
// group (highest severity, earliest line).
type MergedFinding struct {
	Finding
	Sources []string `json:"sources"`
}

// NewMergedFinding lifts a plain finding into a merged finding absorbing
// only itself.
func NewMergedFinding(f Finding) MergedFinding {
	return MergedFinding{Finding: f, Sources: []string{f.Source}}
}

// HasSource reports whether the merged finding already absorbed the given
// source.
func (m MergedFinding) HasSource(source string) bool {
	for _, s := range m.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// UnionSources returns the sorted distinct union of the given source sets.
func UnionSources(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, s := range set {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

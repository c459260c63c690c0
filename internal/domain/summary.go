package domain

import "sort"

// topFindingsLimit caps how many ranked findings a summary carries.
const topFindingsLimit = 10

// Summary holds the aggregated statistics over the deduplicated finding
// set for one run.
type Summary struct {
	CountsBySeverity map[Severity]int  `json:"counts_by_severity"`
	CountsByCategory map[Category]int  `json:"counts_by_category"`
	Total            int               `json:"total"`
	TopFindings      []MergedFinding   `json:"top_findings,omitempty"`
}

// Aggregate counts and ranks a deduplicated finding set. Pure: the input
// is not mutated and repeated calls yield identical summaries.
func Aggregate(merged []MergedFinding) Summary {
	counts := make(map[Severity]int, len(severityRank))
	for _, sev := range Severities() {
		counts[sev] = 0
	}
	byCategory := make(map[Category]int)

	for _, m := range merged {
		counts[m.Severity]++
		byCategory[m.Category]++
	}

	ranked := make([]MergedFinding, len(merged))
	copy(ranked, merged)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Category.Priority() != b.Category.Priority() {
			return a.Category.Priority() < b.Category.Priority()
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.LineNumber < b.LineNumber
	})
	if len(ranked) > topFindingsLimit {
		ranked = ranked[:topFindingsLimit]
	}

	return Summary{
		CountsBySeverity: counts,
		CountsByCategory: byCategory,
		Total:            len(merged),
		TopFindings:      ranked,
	}
}

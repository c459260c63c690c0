package domain

import "time"

// SummaryMarker is an invisible HTML comment embedded in every rendered
// summary. Platforms find the previous run's comment by this marker and
// update it in place instead of stacking a new comment per push.
const SummaryMarker = "<!-- ai-review-summary -->"

// ReviewReport is the complete outcome of one pipeline run: the verdict,
// the aggregated summary, every deduplicated finding, and the aspects
// that could not run. Failures are reported separately from findings so
// "couldn't check" is never mistaken for "no issues found".
type ReviewReport struct {
	Verdict     Verdict         `json:"verdict"`
	Summary     Summary         `json:"summary"`
	Findings    []MergedFinding `json:"findings"`
	Failures    []AspectFailure `json:"failures,omitempty"`
	Uncertain   bool            `json:"uncertain,omitempty"`
	Change      *ChangeRequest  `json:"change,omitempty"`
	Profile     ChangeProfile   `json:"profile"`
	Metrics     RunMetrics      `json:"metrics"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ReportStore persists a finished report as a build artifact.
type ReportStore interface {
	Save(report *ReviewReport, path string) error
	Load(path string) (*ReviewReport, error)
}

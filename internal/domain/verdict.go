package domain

import "fmt"

// BlockingPolicy is the severity-threshold policy applied to the
// aggregated finding set. MaxFindings thresholds are per severity;
// severities without an entry are unlimited.
type BlockingPolicy struct {
	BlockOnCritical bool             `yaml:"block_on_critical" json:"block_on_critical"`
	BlockOnHigh     bool             `yaml:"block_on_high" json:"block_on_high"`
	MaxFindings     map[Severity]int `yaml:"max_findings" json:"max_findings"`
}

// DefaultBlockingPolicy blocks on any critical finding, tolerates up to
// five high and twenty medium findings, and ignores the rest.
func DefaultBlockingPolicy() BlockingPolicy {
	return BlockingPolicy{
		BlockOnCritical: true,
		BlockOnHigh:     false,
		MaxFindings: map[Severity]int{
			SeverityCritical: 0,
			SeverityHigh:     5,
			SeverityMedium:   20,
		},
	}
}

// Validate rejects out-of-range policy values. This runs at configuration
// load; evaluation itself never fails.
func (p BlockingPolicy) Validate() error {
	for sev, max := range p.MaxFindings {
		if !sev.Valid() {
			return fmt.Errorf("blocking policy references unknown severity %q", sev)
		}
		if max < 0 {
			return fmt.Errorf("blocking policy has negative max_findings for %s: %d", sev, max)
		}
	}
	return nil
}

// Verdict is the final block/approve decision for one run, created once
// by the blocking-rule evaluator.
type Verdict struct {
	ShouldBlock      bool             `json:"should_block"`
	TriggeredRules   []string         `json:"triggered_rules"`
	CountsBySeverity map[Severity]int `json:"counts_by_severity"`
}

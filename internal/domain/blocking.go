package domain

import "fmt"

// Evaluate applies a blocking policy to an aggregated summary. It is
// deterministic and total: every valid (summary, policy) pair yields
// exactly one verdict, and every violated rule is listed, not just the
// first. Rule order is fixed: critical gate, high gate, then per-severity
// thresholds from critical down to info.
func Evaluate(summary Summary, policy BlockingPolicy) Verdict {
	var rules []string

	if policy.BlockOnCritical {
		if n := summary.CountsBySeverity[SeverityCritical]; n > 0 {
			rules = append(rules, fmt.Sprintf("Found %d critical issue(s)", n))
		}
	}
	if policy.BlockOnHigh {
		if n := summary.CountsBySeverity[SeverityHigh]; n > 0 {
			rules = append(rules, fmt.Sprintf("Found %d high severity issue(s)", n))
		}
	}
	for _, sev := range Severities() {
		max, ok := policy.MaxFindings[sev]
		if !ok {
			continue
		}
		if n := summary.CountsBySeverity[sev]; n > max {
			rules = append(rules, fmt.Sprintf("Exceeded maximum %s findings (%d > %d)", sev, n, max))
		}
	}

	counts := make(map[Severity]int, len(summary.CountsBySeverity))
	for _, sev := range Severities() {
		counts[sev] = summary.CountsBySeverity[sev]
	}

	return Verdict{
		ShouldBlock:      len(rules) > 0,
		TriggeredRules:   rules,
		CountsBySeverity: counts,
	}
}
